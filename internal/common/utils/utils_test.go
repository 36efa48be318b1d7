package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination_Normalize(t *testing.T) {
	tests := []struct {
		name         string
		in           Pagination
		wantPage     int
		wantPageSize int
	}{
		{"零值取默认", Pagination{}, 1, 10},
		{"超出上限", Pagination{Page: 3, PageSize: 500}, 3, 100},
		{"负数", Pagination{Page: -1, PageSize: -5}, 1, 10},
		{"正常", Pagination{Page: 2, PageSize: 20}, 2, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPageSize, p.PageSize)
		})
	}
}

func TestPagination_OffsetAndPages(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 10}
	assert.Equal(t, 20, p.Offset())
	assert.Equal(t, 10, p.Limit())
	assert.Equal(t, 3, p.TotalPages(21))
	assert.Equal(t, 2, p.TotalPages(20))
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 0, Pagination{}.TotalPages(5))
}

func TestFormatVND(t *testing.T) {
	tests := map[int64]string{
		0:       "0đ",
		999:     "999đ",
		1000:    "1.000đ",
		120000:  "120.000đ",
		1234567: "1.234.567đ",
		-45000:  "-45.000đ",
		-100:    "-100đ",
		-1000:   "-1.000đ",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatVND(in), in)
	}
}
