package relay

import (
	"errors"
	"testing"
)

func TestParseReply(t *testing.T) {
	cases := []struct {
		args    string
		want    ReplyCommand
		wantErr error
	}{
		{args: "42 Hello", want: ReplyCommand{Target: 42, Body: "Hello"}},
		{args: "  42   Hello there  ", want: ReplyCommand{Target: 42, Body: "Hello there  "}},
		{args: "42\nline one\nline two", want: ReplyCommand{Target: 42, Body: "line one\nline two"}},
		{args: "0 zero is allowed", want: ReplyCommand{Target: 0, Body: "zero is allowed"}},
		{args: "9223372036854775807 max", want: ReplyCommand{Target: 9223372036854775807, Body: "max"}},
		{args: "42 {id} stays literal", want: ReplyCommand{Target: 42, Body: "{id} stays literal"}},
		{args: "", wantErr: ErrMalformedCommand},
		{args: "   ", wantErr: ErrMalformedCommand},
		{args: "42", wantErr: ErrMalformedCommand},
		{args: "42   ", wantErr: ErrMalformedCommand},
		{args: "abc Hello", wantErr: ErrInvalidIdentifier},
		{args: "-5 Hello", wantErr: ErrInvalidIdentifier},
		{args: "4.2 Hello", wantErr: ErrInvalidIdentifier},
		{args: "9223372036854775808 overflow", wantErr: ErrInvalidIdentifier},
	}
	for _, tc := range cases {
		got, err := ParseReply(tc.args)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ParseReply(%q) err = %v, want %v", tc.args, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseReply(%q) unexpected err: %v", tc.args, err)
		}
		if got != tc.want {
			t.Fatalf("ParseReply(%q) = %+v, want %+v", tc.args, got, tc.want)
		}
	}
}
