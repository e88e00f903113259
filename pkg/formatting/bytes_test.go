package formatting_test

import (
	"testing"

	"github.com/JaimeStill/erisa/pkg/formatting"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n         int64
		precision int
		want      string
	}{
		{0, 1, "0 B"},
		{512, 1, "512 B"},
		{1536, 1, "1.5 KB"},
		{10 * 1024 * 1024, 0, "10 MB"},
		{3 * 1024 * 1024 * 1024, 2, "3.00 GB"},
		{2048, -1, "2 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatting.FormatBytes(tt.n, tt.precision); got != tt.want {
				t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.n, tt.precision, got, tt.want)
			}
		})
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"2048", 2048, false},
		{"10MB", 10 * 1024 * 1024, false},
		{"512 kb", 512 * 1024, false},
		{"1.5KB", 1536, false},
		{" 1 GB ", 1024 * 1024 * 1024, false},
		{"", 0, true},
		{"MB", 0, true},
		{"10 XB", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := formatting.ParseBytes(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytes(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBytes(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
