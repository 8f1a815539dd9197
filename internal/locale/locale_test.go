package locale

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Locale
		wantOK bool
	}{
		{name: "russian", text: "Привет, как начать игру?", want: RU, wantOK: true},
		{name: "english sentence", text: "How do I start a new game with my friends?", want: EN, wantOK: true},
		{name: "english short", text: "hi", want: EN, wantOK: true},
		{name: "command only", text: "/start", want: RU, wantOK: false},
		{name: "mention and cyrillic", text: "@spy_bot помоги", want: RU, wantOK: true},
		{name: "url only", text: "https://example.com/x", want: RU, wantOK: false},
		{name: "empty", text: "   ", want: RU, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.text)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("unexpected locale: got=%s/%v want=%s/%v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFromCode(t *testing.T) {
	cases := map[string]Locale{
		"en":    EN,
		"en-US": EN,
		"eng":   EN,
		"ru_RU": RU,
		"":      RU,
		"de":    RU,
	}
	for code, want := range cases {
		if got := FromCode(code); got != want {
			t.Fatalf("unexpected locale for %q: got=%s want=%s", code, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("/join@SpyBot   ABC123"); got != "ABC123" {
		t.Fatalf("unexpected normalized text: got=%q", got)
	}
	if got := Normalize("  hello   @bob  world "); got != "hello world" {
		t.Fatalf("unexpected normalized text: got=%q", got)
	}
}
