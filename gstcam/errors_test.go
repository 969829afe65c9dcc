package gstcam

import "testing"

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"Cannot identify device '/dev/video7'", ErrCategoryNotFound},
		{"No such file or directory", ErrCategoryNotFound},
		{"Device '/dev/video0' is busy", ErrCategoryBusy},
		{"Resource unavailable: device in use", ErrCategoryBusy},
		{"Internal data stream error: streaming stopped, reason not-negotiated", ErrCategoryFormat},
		{"could not link capsfilter to appsink, caps mismatch", ErrCategoryFormat},
		{"something else entirely", ErrCategoryUnknown},
		{"", ErrCategoryUnknown},
	}
	for _, tt := range tests {
		if got := classifyMessage(tt.msg); got != tt.want {
			t.Errorf("classifyMessage(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if got := classifyError(nil); got != ErrCategoryUnknown {
		t.Fatalf("classifyError(nil) = %v, want unknown", got)
	}
}

func TestErrorCategoryString(t *testing.T) {
	tests := []struct {
		cat  ErrorCategory
		want string
	}{
		{ErrCategoryNotFound, "not-found"},
		{ErrCategoryBusy, "busy"},
		{ErrCategoryFormat, "format"},
		{ErrCategoryUnknown, "unknown"},
		{ErrorCategory(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}
