package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestGetSimpleText(t *testing.T) {
	tests := []struct {
		name, input, want string
		wantErr           bool
	}{
		{name: "line", input: "hello world\n", want: "hello world"},
		{name: "trims", input: "  alice@x.test \r\n", want: "alice@x.test"},
		{name: "last line without newline", input: "lastline", want: "lastline"},
		{name: "empty input", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetSimpleText(bufio.NewReader(strings.NewReader(tt.input)), "Name?", &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			if out.String() != "Name?\n> " {
				t.Fatalf("unexpected prompt %q", out.String())
			}
		})
	}
}

func stubReadPassword(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestGetPassword(t *testing.T) {
	stubReadPassword(t, "pw")

	var out bytes.Buffer
	got, err := GetPassword(&out, "Enter password")
	if err != nil || string(got) != "pw" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if out.String() != "Enter password: \n" {
		t.Fatalf("unexpected prompt %q", out.String())
	}
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	if _, err := GetPassword(io.Discard, "Enter password"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetNewPassword(t *testing.T) {
	stubReadPassword(t, "secret", "secret")
	pw, err := GetNewPassword(io.Discard)
	if err != nil || string(pw) != "secret" {
		t.Fatalf("got %q, err=%v", pw, err)
	}

	stubReadPassword(t, "secret", "other")
	if _, err := GetNewPassword(io.Discard); !errors.Is(err, errPasswordMismatch) {
		t.Fatalf("want errPasswordMismatch, got %v", err)
	}

	stubReadPassword(t, "secret")
	if _, err := GetNewPassword(io.Discard); !errors.Is(err, io.EOF) {
		t.Fatalf("want io.EOF, got %v", err)
	}
}
