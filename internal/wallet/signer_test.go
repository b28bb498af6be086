package wallet

import (
	"errors"
	"testing"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

func TestIsUserRejection(t *testing.T) {
	if !IsUserRejection(ErrUserRejected()) {
		t.Fatal("typed rejection must be recognized")
	}
	if !IsUserRejection(errors.New("provider error 4001: user rejected the request")) {
		t.Fatal("EIP-1193 style rejection must be recognized")
	}
	if IsUserRejection(errors.New("nonce too low")) {
		t.Fatal("unrelated errors are not rejections")
	}
	if IsUserRejection(nil) {
		t.Fatal("nil is not a rejection")
	}
}

func TestErrUserRejectedCode(t *testing.T) {
	if xerr.CodeOf(ErrUserRejected()) != xerr.CodeUserDeclined {
		t.Fatal("rejection must carry the user-declined code")
	}
}

func TestNewLocalSigner(t *testing.T) {
	// well-known throwaway test key
	s, err := NewLocalSigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", "")
	if err != nil {
		t.Fatalf("new local signer: %v", err)
	}
	if s.Address() == "" {
		t.Fatal("expected derived address")
	}
	if _, err := NewLocalSigner("", ""); err == nil {
		t.Fatal("empty key must fail")
	}
	if _, err := NewLocalSigner("zz", ""); err == nil {
		t.Fatal("malformed key must fail")
	}
}

func TestDecodeHex(t *testing.T) {
	buf, err := decodeHex("0xdeadbeef")
	if err != nil || len(buf) != 4 {
		t.Fatalf("decodeHex: %v %v", buf, err)
	}
	if buf, err := decodeHex(""); err != nil || len(buf) != 0 {
		t.Fatalf("empty calldata must decode to empty slice, got %v %v", buf, err)
	}
	// odd-length input is left-padded, matching wallet provider behavior
	if buf, err := decodeHex("0xf"); err != nil || len(buf) != 1 || buf[0] != 0x0f {
		t.Fatalf("odd length: %v %v", buf, err)
	}
}
