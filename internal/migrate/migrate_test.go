package migrate

import (
	"strings"
	"testing"
)

func TestFilesOrdered(t *testing.T) {
	files, err := Files()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) < 2 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Fatalf("migrations out of order: %v", files)
		}
	}
	b, err := fs.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "WHERE status NOT IN ('canceled','expired')") {
		t.Fatal("reservations migration must carry the live-slot unique index")
	}
}
