package diff

import (
	"testing"

	"github.com/Ning0612/Gitpush/internal/core/checksum"
	"github.com/Ning0612/Gitpush/internal/domain"
)

func TestDefaultComparer(t *testing.T) {
	comparer := NewDefaultComparer()
	phpHash := checksum.Sum([]byte("<?php echo 1;"))

	tests := []struct {
		name   string
		local  string
		remote *domain.RemoteEntry
		want   domain.ChangeStatus
	}{
		{
			name:  "absent remotely",
			local: phpHash,
			want:  domain.StatusNew,
		},
		{
			name:   "same hash",
			local:  phpHash,
			remote: &domain.RemoteEntry{Path: "a.php", Hash: phpHash, Kind: domain.KindBlob},
			want:   domain.StatusUnchanged,
		},
		{
			name:   "same hash different case",
			local:  phpHash,
			remote: &domain.RemoteEntry{Path: "a.php", Hash: "74E80946D0DA8372C10F17874A564F2ECE67FA67", Kind: domain.KindBlob},
			want:   domain.StatusUnchanged,
		},
		{
			name:   "different hash",
			local:  checksum.Sum([]byte("<?php echo 2;")),
			remote: &domain.RemoteEntry{Path: "a.php", Hash: phpHash, Kind: domain.KindBlob},
			want:   domain.StatusModified,
		},
		{
			name:   "submodule at path",
			local:  phpHash,
			remote: &domain.RemoteEntry{Path: "a.php", Hash: phpHash, Kind: domain.KindSubmodule},
			want:   domain.StatusNew,
		},
		{
			name:   "empty local file against non-empty remote",
			local:  checksum.EmptyBlobHash,
			remote: &domain.RemoteEntry{Path: "a.php", Hash: phpHash, Kind: domain.KindBlob},
			want:   domain.StatusModified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := comparer.Compare(tt.local, tt.remote); got != tt.want {
				t.Errorf("Compare() = %v, want %v", got, tt.want)
			}
		})
	}
}
