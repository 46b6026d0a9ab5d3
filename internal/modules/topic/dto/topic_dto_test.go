package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateTopicRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase", in: "algorithms 101", want: "Algorithms 101"},
		{name: "shouting", in: "DISTRIBUTED SYSTEMS", want: "Distributed Systems"},
		{name: "mixed case", in: "gRaPh tHeOrY", want: "Graph Theory"},
		{name: "surrounding whitespace", in: "  compilers  ", want: "Compilers"},
		{name: "already normalized", in: "Operating Systems", want: "Operating Systems"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := CreateTopicRequest{Name: tt.in}
			req.Normalize()
			assert.Equal(t, tt.want, req.Name)
		})
	}
}
