package proxylist

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"proxychains-pool/pkg/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        []models.Endpoint
		wantSkipped int
	}{
		{
			name:  "valid list with one bad line",
			input: "1.2.3.4:8080\nbad-line\n5.6.7.8:1080\n",
			want: []models.Endpoint{
				{Host: "1.2.3.4", Port: 8080},
				{Host: "5.6.7.8", Port: 1080},
			},
			wantSkipped: 1,
		},
		{
			name:        "empty input",
			input:       "",
			want:        nil,
			wantSkipped: 0,
		},
		{
			name:        "blank lines and comments are not counted as skipped",
			input:       "\n# a comment\n\n9.9.9.9:3128\n",
			want:        []models.Endpoint{{Host: "9.9.9.9", Port: 3128}},
			wantSkipped: 0,
		},
		{
			name:        "port out of range",
			input:       "1.2.3.4:99999\n1.2.3.4:0\n1.2.3.4:65535\n",
			want:        []models.Endpoint{{Host: "1.2.3.4", Port: 65535}},
			wantSkipped: 2,
		},
		{
			name:        "missing port",
			input:       "1.2.3.4\n:8080\n",
			want:        nil,
			wantSkipped: 2,
		},
		{
			name:        "surrounding whitespace is tolerated",
			input:       "  1.2.3.4:8080  \n",
			want:        []models.Endpoint{{Host: "1.2.3.4", Port: 8080}},
			wantSkipped: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("Parse() skipped = %d, want %d", skipped, tt.wantSkipped)
			}
		})
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	endpoints := []models.Endpoint{
		{Host: "1.2.3.4", Port: 8080},
		{Host: "5.6.7.8", Port: 1080},
		{Host: "9.9.9.9", Port: 3128},
	}

	path := filepath.Join(t.TempDir(), "valid.txt")
	if err := WriteFile(path, endpoints); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, skipped, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("ReadFile() skipped = %d, want 0", skipped)
	}
	if !reflect.DeepEqual(got, endpoints) {
		t.Errorf("round trip = %v, want %v", got, endpoints)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, _, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("ReadFile() expected error for missing file")
	}
}
