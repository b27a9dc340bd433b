package evaluation

import "testing"

func TestParseSynthesisVariants(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		feedback string
		clarity  float64
		simple   float64
	}{
		{
			name:     "bare object",
			raw:      `{"feedback":"ok","scores":{"clarity":6,"constraints_awareness":6,"trade_off_reasoning":6,"failure_anticipation":6,"simplicity":7}}`,
			feedback: "ok",
			clarity:  6,
			simple:   7,
		},
		{
			name:    "unlabelled fence with prose",
			raw:     "```\nHere you go:\n{\"scores\":{\"clarity\":4,\"constraints_awareness\":5,\"trade_off_reasoning\":6,\"failure_anticipation\":7,\"simplicity\":8}}\n```",
			clarity: 4,
			simple:  8,
		},
		{
			name:    "flat scores",
			raw:     `{"clarity":3,"constraints_awareness":3,"trade_off_reasoning":3,"failure_anticipation":3,"simplicity":3}`,
			clarity: 3,
			simple:  3,
		},
		{
			name:     "flat scores beside feedback",
			raw:      `{"feedback":"Good work","clarity":8,"constraints_awareness":7,"trade_off_reasoning":6,"failure_anticipation":7,"simplicity":9}`,
			feedback: "Good work",
			clarity:  8,
			simple:   9,
		},
		{
			name:    "clamped",
			raw:     `{"scores":{"clarity":14,"constraints_awareness":5,"trade_off_reasoning":5,"failure_anticipation":5,"simplicity":-2}}`,
			clarity: 10,
			simple:  0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb, s, err := parseSynthesis(tc.raw)
			if err != nil {
				t.Fatalf("parseSynthesis: %v", err)
			}
			if fb != tc.feedback || s.Clarity != tc.clarity || s.Simplicity != tc.simple {
				t.Fatalf("got (%q, %+v)", fb, s)
			}
		})
	}
}

func TestParseSynthesisRejectsNonNumericFlatScore(t *testing.T) {
	_, _, err := parseSynthesis(`{"feedback":"x","clarity":"high","constraints_awareness":7,"trade_off_reasoning":7,"failure_anticipation":7,"simplicity":7}`)
	if err == nil {
		t.Fatalf("expected error for non-numeric score")
	}
}

func TestParseImage(t *testing.T) {
	if ParseImage("  ") != nil {
		t.Fatalf("blank input should be nil")
	}
	img := ParseImage("iVBORw0KGgo=")
	if img == nil || img.MimeType != "image/png" || img.Data != "iVBORw0KGgo=" {
		t.Fatalf("bare base64 = %+v", img)
	}
	if !img.Valid() {
		t.Fatalf("expected valid base64")
	}
	img = ParseImage("data:image/webp;base64,UklGRg==")
	if img.MimeType != "image/webp" || img.Data != "UklGRg==" {
		t.Fatalf("data url = %+v", img)
	}
	if img.DataURL() != "data:image/webp;base64,UklGRg==" {
		t.Fatalf("DataURL = %q", img.DataURL())
	}
	if ParseImage("data:image/png;base64,") != nil {
		t.Fatalf("empty payload should be nil")
	}
}
