package sparse

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

func benchCorpus(n int) []types.Chunk {
	chunks := make([]types.Chunk, n)
	for i := range chunks {
		chunks[i] = chunk(fmt.Sprintf("c%05d", i),
			fmt.Sprintf("func handleRequest%d(ctx context.Context) error { return userRepository.Find(ctx, %d) }", i, i))
	}
	return chunks
}

func BenchmarkRebuild(b *testing.B) {
	chunks := benchCorpus(5000)
	ix := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Rebuild(chunks)
	}
}

func BenchmarkSearch(b *testing.B) {
	ix := New()
	ix.Rebuild(benchCorpus(5000))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ix.Search(ctx, "user repository find", 10); err != nil {
			b.Fatal(err)
		}
	}
}
