package slug

import (
	"context"
	"strings"
	"testing"
)

func TestSlugify_Chinese(t *testing.T) {
	got := Slugify("如何学习 Next.js", 0)

	if got != "ru-he-xue-xi-nextjs" {
		t.Errorf("Slugify = %q, want ru-he-xue-xi-nextjs", got)
	}
	if len(got) > DefaultMaxLength {
		t.Errorf("slug length = %d, want <= %d", len(got), DefaultMaxLength)
	}
	if ContainsNonLatinScript(got) {
		t.Errorf("slug %q still contains non-Latin characters", got)
	}
}

func TestSlugify_Basic(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello, World!", "hello-world"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"Go's net/http Package", "gos-net-http-package"},
		{"Café Résumé", "cafe-resume"},
		{"C++ & Rust", "c-rust"},
		{"UPPER case Title", "upper-case-title"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.title, 0); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestSlugify_Truncation(t *testing.T) {
	title := strings.Repeat("longword ", 20)
	got := Slugify(title, 30)

	if len(got) > 30 {
		t.Errorf("slug length = %d, want <= 30", len(got))
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Errorf("slug %q has dangling hyphen", got)
	}
	// Should cut at a word boundary, not mid-word.
	if got != "longword-longword-longword" {
		t.Errorf("slug = %q, want cut at hyphen boundary", got)
	}
}

func TestHasForeignSuffix(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"my-post-a1b2c3", true},
		{"import-xk42-9fzq", true},
		{"notes_h7f3k9", true},
		{"my-post", false},
		{"learning-golang", false}, // alphabetic tail is a word, not noise
		{"a-b", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasForeignSuffix(tt.slug); got != tt.want {
			t.Errorf("HasForeignSuffix(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}

func TestContainsNonLatinScript(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"如何学习-nextjs", true},
		{"статья-о-go", true},
		{"plain-ascii", false},
		{"cafe-resume", false},
		{"post-123", false},
	}

	for _, tt := range tests {
		if got := ContainsNonLatinScript(tt.slug); got != tt.want {
			t.Errorf("ContainsNonLatinScript(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}

// fakeIndex is an in-memory slug index for resolver tests.
type fakeIndex struct {
	taken map[string]int64 // slug -> owning post id
}

func (f *fakeIndex) SlugInUse(_ context.Context, slug string, excludePostID int64) (bool, error) {
	owner, ok := f.taken[slug]
	if !ok {
		return false, nil
	}
	return excludePostID == 0 || owner != excludePostID, nil
}

func TestResolve_Unique(t *testing.T) {
	idx := &fakeIndex{taken: map[string]int64{}}
	r := &Resolver{}
	ctx := context.Background()

	first, err := r.Resolve(ctx, idx, "My Post", 0)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if first != "my-post" {
		t.Errorf("first slug = %q, want my-post", first)
	}
	idx.taken[first] = 1

	// Same title for a different new article gets a numeric suffix.
	second, err := r.Resolve(ctx, idx, "My Post", 0)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if second != "my-post-1" {
		t.Errorf("second slug = %q, want my-post-1", second)
	}
	idx.taken[second] = 2

	third, err := r.Resolve(ctx, idx, "My Post", 0)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if third != "my-post-2" {
		t.Errorf("third slug = %q, want my-post-2", third)
	}
}

func TestResolve_ExcludesOwnPost(t *testing.T) {
	idx := &fakeIndex{taken: map[string]int64{"my-post": 7}}
	r := &Resolver{}

	got, err := r.Resolve(context.Background(), idx, "My Post", 7)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got != "my-post" {
		t.Errorf("slug = %q, want my-post (own slug is not a collision)", got)
	}
}

func TestResolve_SuffixRespectsMaxLength(t *testing.T) {
	r := &Resolver{MaxLength: 12}
	idx := &fakeIndex{taken: map[string]int64{}}
	ctx := context.Background()

	title := "abcdefghijkl mnop"
	first, err := r.Resolve(ctx, idx, title, 0)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	idx.taken[first] = 1

	second, err := r.Resolve(ctx, idx, title, 0)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if len(second) > 12 {
		t.Errorf("suffixed slug %q exceeds max length 12", second)
	}
	if !strings.HasSuffix(second, "-1") {
		t.Errorf("suffixed slug = %q, want -1 suffix", second)
	}
}

func TestResolve_EmptyTitle(t *testing.T) {
	r := &Resolver{}
	got, err := r.Resolve(context.Background(), &fakeIndex{taken: map[string]int64{}}, "!!!", 0)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got != "untitled" {
		t.Errorf("slug = %q, want untitled fallback", got)
	}
}
