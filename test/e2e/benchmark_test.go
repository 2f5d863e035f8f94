package e2e_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mcncl/jsoncanon/canon"
	"github.com/stretchr/testify/require"
)

// generateNestedJSON creates a deeply nested JSON structure for benchmarking
func generateNestedJSON(depth int, width int) map[string]interface{} {
	if depth <= 0 {
		return map[string]interface{}{
			"leaf_value": "data",
			"timestamp":  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"count":      rand.Intn(100),
			"enabled":    rand.Intn(2) == 1,
		}
	}

	result := make(map[string]interface{})
	for i := 0; i < width; i++ {
		key := fmt.Sprintf("nested_%d_%d", depth, i)
		result[key] = generateNestedJSON(depth-1, width)
	}
	return result
}

// generateArray creates an array of objects whose order depends on seed
func generateArray(size int, seed int64) []map[string]interface{} {
	array := make([]map[string]interface{}, size)
	for i := 0; i < size; i++ {
		array[i] = map[string]interface{}{
			"id":       i,
			"name":     fmt.Sprintf("Item %d", i),
			"value":    float64(i) + 0.5,
			"active":   i%2 == 0,
			"category": fmt.Sprintf("Category %d", i%5),
			"tags":     []int{i % 3, i % 7},
		}
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(size, func(i, j int) { array[i], array[j] = array[j], array[i] })
	return array
}

func mustParse(b *testing.B, v interface{}) canon.Value {
	b.Helper()
	data, err := json.Marshal(v)
	require.NoError(b, err)
	doc, err := canon.Parse(string(data))
	require.NoError(b, err)
	return doc
}

// BenchmarkDeepNesting benchmarks flattening deeply nested documents
func BenchmarkDeepNesting(b *testing.B) {
	depths := []struct {
		name  string
		depth int
		width int
	}{
		{"Depth3Width3", 3, 3},
		{"Depth5Width2", 5, 2},
		{"Depth2Width10", 2, 10},
	}

	for _, depth := range depths {
		b.Run(depth.name, func(b *testing.B) {
			doc := mustParse(b, generateNestedJSON(depth.depth, depth.width))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := canon.Flatten(doc, canon.DefaultOptions())
				require.NoError(b, err)
			}
		})
	}
}

// BenchmarkArrayCanonicalization benchmarks comparing shuffled arrays
func BenchmarkArrayCanonicalization(b *testing.B) {
	sizes := []struct {
		name      string
		arraySize int
	}{
		{"Array100", 100},
		{"Array1000", 1000},
		{"Array5000", 5000},
	}

	opts := canon.DefaultOptions()
	opts.CanonicalizeArrays = true

	for _, size := range sizes {
		b.Run(size.name, func(b *testing.B) {
			left := mustParse(b, generateArray(size.arraySize, 1))
			right := mustParse(b, generateArray(size.arraySize, 2))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				result, err := canon.Compare(left, right, opts)
				require.NoError(b, err)
				require.True(b, result.Equal)
			}
		})
	}
}

// BenchmarkMarkupRoundTrip benchmarks encoding to markup and back
func BenchmarkMarkupRoundTrip(b *testing.B) {
	doc := mustParse(b, generateArray(1000, 1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tree, err := canon.ToMarkup(doc)
		require.NoError(b, err)
		_, err = canon.FromMarkup(tree)
		require.NoError(b, err)
	}
}
