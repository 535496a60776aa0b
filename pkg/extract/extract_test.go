package extract

import (
	"reflect"
	"testing"
)

func TestTag(t *testing.T) {
	v, err := Parse(Tag{Name: "answer"}, "prefix <answer>42</answer> suffix")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != "42" {
		t.Fatalf("got %q", v)
	}
}

func TestTagMissingOpen(t *testing.T) {
	_, err := Parse(Tag{Name: "answer"}, "no tags here")
	if !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestTagMissingClose(t *testing.T) {
	_, err := Parse(Tag{Name: "a"}, "<a>unterminated")
	if !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCodeBlock(t *testing.T) {
	text := "Here you go:\n```python\nprint(1)\n```\ndone"
	v, err := Parse(CodeBlock{}, text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != "print(1)" {
		t.Fatalf("got %q", v)
	}
}

func TestCodeBlockFenceAtEnd(t *testing.T) {
	// closing fence without a preceding newline
	v, err := Parse(CodeBlock{}, "```\nx = 1```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v != "x = 1" {
		t.Fatalf("got %q", v)
	}
}

func TestCodeBlockUnterminated(t *testing.T) {
	for _, text := range []string{"```", "```python\nno close"} {
		if _, err := Parse(CodeBlock{}, text); !IsParse(err) {
			t.Fatalf("%q: expected parse error, got %v", text, err)
		}
	}
}

func TestSeq(t *testing.T) {
	spec := Seq{Parts: []Spec{Tag{Name: "q"}, Tag{Name: "a"}}}
	v, err := Parse(spec, "<q>why</q> then <a>because</a>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []any{"why", "because"}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %v want %v", v, want)
	}
}

func TestSeqPartFailurePropagates(t *testing.T) {
	spec := Seq{Parts: []Spec{Tag{Name: "q"}, Tag{Name: "a"}}}
	if _, err := Parse(spec, "<q>why</q> no answer"); !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestStar(t *testing.T) {
	v, err := Parse(Star{Inner: Tag{Name: "i"}}, "<i>1</i><i>2</i><i>3</i>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []any{"1", "2", "3"}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %v want %v", v, want)
	}
}

func TestStarEmpty(t *testing.T) {
	v, err := Parse(Star{Inner: Tag{Name: "i"}}, "nothing")
	if err != nil {
		t.Fatalf("star must accept zero matches: %v", err)
	}
	if !reflect.DeepEqual(v, []any{}) {
		t.Fatalf("got %v", v)
	}
}

func TestPlusRequiresOne(t *testing.T) {
	if _, err := Parse(Plus{Inner: Tag{Name: "i"}}, "nothing"); !IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
	v, err := Parse(Plus{Inner: Tag{Name: "i"}}, "<i>only</i>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(v, []any{"only"}) {
		t.Fatalf("got %v", v)
	}
}

func TestNestedSpec(t *testing.T) {
	spec := Seq{Parts: []Spec{Tag{Name: "title"}, Plus{Inner: Tag{Name: "item"}}}}
	v, err := Parse(spec, "<title>list</title>\n<item>a</item>\n<item>b</item>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	parts := v.([]any)
	if parts[0] != "list" {
		t.Fatalf("title: %v", parts[0])
	}
	if !reflect.DeepEqual(parts[1], []any{"a", "b"}) {
		t.Fatalf("items: %v", parts[1])
	}
}
