package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"alfredoptarigan/jobsync/internal/config"
)

func TestCheckEmbeddingDimension(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		dimension int
		wantErr   bool
	}{
		{"pgvector schema size", "pgvector", 384, false},
		{"pgvector other size", "pgvector", 768, true},
		{"qdrant any size", "qdrant", 768, false},
		{"zero", "qdrant", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.VectorStore.Backend = tt.backend
			cfg.Embedding.Dimension = tt.dimension

			err := checkEmbeddingDimension(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
