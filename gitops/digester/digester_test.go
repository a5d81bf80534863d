package digester_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/byte4ever/manifest_submit/gitops/digester"
)

func TestBlobOID_matches_git(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "empty blob",
			data: "",
			want: "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391",
		},
		{
			name: "hello with newline",
			data: "hello\n",
			want: "ce013625030ba8dba906f756967f9e9ca394464a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, digester.BlobOID([]byte(tt.data)))
		})
	}
}
