package sign_test

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/phongthuytaman/backend-store/internal/sign"
)

func TestSignDeterministic(t *testing.T) {
	params := map[string]string{
		"vnp_Amount":  "1000000000",
		"vnp_Command": "pay",
		"vnp_TmnCode": "STUB01",
	}
	first := sign.Sign(params, "secret", sign.HMACSHA512)
	for i := 0; i < 10; i++ {
		if got := sign.Sign(params, "secret", sign.HMACSHA512); got != first {
			t.Fatalf("signature changed between calls: %s != %s", got, first)
		}
	}
}

func TestCanonicalOrderIndependence(t *testing.T) {
	a := map[string]string{}
	a["zeta"] = "1"
	a["alpha"] = "2"
	a["mid"] = "3"

	b := map[string]string{}
	b["mid"] = "3"
	b["zeta"] = "1"
	b["alpha"] = "2"

	if sign.Sign(a, "k", sign.HMACSHA256) != sign.Sign(b, "k", sign.HMACSHA256) {
		t.Fatal("insertion order changed the signature")
	}
	if got, want := sign.Canonicalize(a), "alpha=2&mid=3&zeta=1"; got != want {
		t.Fatalf("canonical form = %q, want %q", got, want)
	}
}

func TestVerifySoundness(t *testing.T) {
	params := map[string]string{
		"app_id":       "2553",
		"app_trans_id": "240530_123456",
		"amount":       "50000",
	}
	sig := sign.Sign(params, "key1", sign.HMACSHA256)

	if !sign.Verify(params, sig, "key1", sign.HMACSHA256) {
		t.Fatal("verify rejected a valid signature")
	}
	if sign.Verify(params, sig, "key2", sign.HMACSHA256) {
		t.Fatal("verify accepted a signature under the wrong secret")
	}

	tampered := map[string]string{}
	for k, v := range params {
		tampered[k] = v
	}
	tampered["amount"] = "50001"
	if sign.Verify(tampered, sig, "key1", sign.HMACSHA256) {
		t.Fatal("verify accepted a tampered parameter set")
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	if sign.Verify(nil, "", "secret", sign.HMACSHA256) {
		t.Fatal("empty signature must not verify")
	}
	if sign.Verify(map[string]string{"a": "b"}, "zz", "", sign.HMACSHA256) {
		t.Fatal("empty secret must not verify")
	}
	if sign.Verify(map[string]string{"a": "b"}, "not-hex-at-all", "secret", sign.HMACSHA256) {
		t.Fatal("garbage signature must not verify")
	}
}

func TestSignMatchesReferenceHMAC(t *testing.T) {
	params := map[string]string{
		"vnp_Amount":   "1000000000",
		"vnp_Command":  "pay",
		"vnp_CurrCode": "VND",
		"vnp_TmnCode":  "STUB01",
		"vnp_TxnRef":   "240530_000001",
	}
	mac := hmac.New(sha512.New, []byte("s3cret"))
	mac.Write([]byte("vnp_Amount=1000000000&vnp_Command=pay&vnp_CurrCode=VND&vnp_TmnCode=STUB01&vnp_TxnRef=240530_000001"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := sign.Sign(params, "s3cret", sign.HMACSHA512); got != want {
		t.Fatalf("signature = %s, want %s", got, want)
	}
}
