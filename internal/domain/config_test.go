package domain

import (
	"errors"
	"testing"
)

func intp(v int) *int    { return &v }
func boolp(v bool) *bool { return &v }

func TestApplyMergesProvidedFields(t *testing.T) {
	cfg := DefaultConfig()
	got, err := cfg.Apply(ConfigPatch{
		FocusSeconds:    intp(50 * 60),
		AutoStartBreaks: boolp(true),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.FocusSeconds != 50*60 {
		t.Fatalf("FocusSeconds = %d, want %d", got.FocusSeconds, 50*60)
	}
	if !got.AutoStartBreaks {
		t.Fatal("AutoStartBreaks not applied")
	}
	// Untouched fields keep their values.
	if got.ShortBreakSeconds != cfg.ShortBreakSeconds {
		t.Fatalf("ShortBreakSeconds changed to %d", got.ShortBreakSeconds)
	}
}

func TestApplyValidation(t *testing.T) {
	tests := []struct {
		name      string
		patch     ConfigPatch
		badFields []string
	}{
		{name: "zero focus", patch: ConfigPatch{FocusSeconds: intp(0)}, badFields: []string{"focusSeconds"}},
		{name: "negative short break", patch: ConfigPatch{ShortBreakSeconds: intp(-5)}, badFields: []string{"shortBreakSeconds"}},
		{name: "focus over ceiling", patch: ConfigPatch{FocusSeconds: intp(MaxFocusSeconds + 1)}, badFields: []string{"focusSeconds"}},
		{name: "long break over ceiling", patch: ConfigPatch{LongBreakSeconds: intp(MaxLongBreakSeconds + 60)}, badFields: []string{"longBreakSeconds"}},
		{name: "interval too small", patch: ConfigPatch{LongBreakInterval: intp(1)}, badFields: []string{"longBreakInterval"}},
		{name: "interval too large", patch: ConfigPatch{LongBreakInterval: intp(11)}, badFields: []string{"longBreakInterval"}},
		{name: "zero weekly goal", patch: ConfigPatch{WeeklyGoalSessions: intp(0)}, badFields: []string{"weeklyGoalSessions"}},
		{
			name:      "multiple bad fields",
			patch:     ConfigPatch{FocusSeconds: intp(-1), LongBreakInterval: intp(0)},
			badFields: []string{"focusSeconds", "longBreakInterval"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			got, err := cfg.Apply(tt.patch)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			for _, f := range tt.badFields {
				if _, ok := verr.Fields[f]; !ok {
					t.Fatalf("missing rejected field %q in %v", f, verr.Fields)
				}
			}
			if len(verr.Fields) != len(tt.badFields) {
				t.Fatalf("rejected fields = %v, want %v", verr.Fields, tt.badFields)
			}
			if got != cfg {
				t.Fatalf("config mutated on failure: %+v", got)
			}
		})
	}
}

func TestApplyEmptyPatchIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	got, err := cfg.Apply(ConfigPatch{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != cfg {
		t.Fatalf("empty patch changed config: %+v", got)
	}
}
