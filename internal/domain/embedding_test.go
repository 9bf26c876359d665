package domain

import (
	"math"
	"testing"
)

func TestZeroVector(t *testing.T) {
	v := ZeroVector()
	if len(v) != EmbeddingDim {
		t.Fatalf("expected dim %d, got %d", EmbeddingDim, len(v))
	}
	if !IsZeroVector(v) {
		t.Error("ZeroVector must be detected as zero")
	}
}

func TestIsZeroVector(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		want bool
	}{
		{"nil", nil, true},
		{"empty", []float32{}, true},
		{"all zeros", []float32{0, 0, 0}, true},
		{"one nonzero", []float32{0, 0.001, 0}, false},
		{"negative", []float32{0, -0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsZeroVector(tt.v); got != tt.want {
				t.Errorf("IsZeroVector(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.35, 1},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSourceTypeValid(t *testing.T) {
	for _, s := range []SourceType{SourceFAQ, SourceDocument, SourceKnowledgeFile, SourceWebsite, SourceWebsitePage} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if SourceType("email").Valid() {
		t.Error("unknown source type must be invalid")
	}
}
