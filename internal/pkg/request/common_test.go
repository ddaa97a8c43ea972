package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListParamsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListParams
		want ListParams
	}{
		{
			name: "zero values get defaults",
			in:   ListParams{},
			want: ListParams{Page: 1, PageSize: 20},
		},
		{
			name: "negative values get defaults",
			in:   ListParams{Page: -3, PageSize: -1},
			want: ListParams{Page: 1, PageSize: 20},
		},
		{
			name: "oversized page size clamps",
			in:   ListParams{Page: 2, PageSize: 500},
			want: ListParams{Page: 2, PageSize: 100},
		},
		{
			name: "valid values untouched",
			in:   ListParams{Page: 3, PageSize: 50},
			want: ListParams{Page: 3, PageSize: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.want, p)
		})
	}
}
