package detector

import (
	"testing"
)

func TestDetectorDetect(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		text     string
		wantLang string
		wantOK   bool
	}{
		{
			name:     "empty text",
			text:     "",
			wantLang: "",
			wantOK:   false,
		},
		{
			name:     "english text",
			text:     "The mind is obsessed by forms, monks, and nothing else obsesses it so.",
			wantLang: "English",
			wantOK:   true,
		},
		{
			name:     "french text",
			text:     "Bonjour, ceci est un test en français.",
			wantLang: "French",
			wantOK:   true,
		},
		{
			name:     "german text",
			text:     "Hallo, das ist ein Test auf Deutsch.",
			wantLang: "German",
			wantOK:   true,
		},
		{
			name:     "hindi text",
			text:     "यह हिंदी भाषा में एक परीक्षण है।",
			wantLang: "Hindi",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, ok := d.Detect(tt.text)
			if ok != tt.wantOK {
				t.Errorf("Detect(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
				return
			}
			if tt.wantOK && lang.String() != tt.wantLang {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, lang, tt.wantLang)
			}
		})
	}
}

func TestDetectorDetectISO(t *testing.T) {
	d := New()

	code, ok := d.DetectISO("This is clearly a long English sentence about canonical texts.")
	if !ok {
		t.Fatal("expected detection to succeed")
	}
	if code != "EN" {
		t.Errorf("DetectISO = %q, want EN", code)
	}
}

func TestDetectorShortText(t *testing.T) {
	d := New()

	// Short text may or may not be detected, just check it doesn't panic.
	code, ok := d.DetectISO("Hi")
	_ = code
	_ = ok
}
