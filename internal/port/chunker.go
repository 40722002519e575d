package port

import "askdocs/internal/domain"

type Chunker interface {
	Chunk(source domain.Source, text string) ([]domain.Chunk, error)
}
