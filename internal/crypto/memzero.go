package crypto

import (
	"crypto/rsa"
	"math/big"
	"runtime"
)

// Wipe zeroes b in place. Use it on symmetric keys and decoded key bytes
// once they are no longer needed.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(&b)
}

// WipePrivateKey zeroes the exported secret values of k. Copies cached inside
// crypto/rsa are out of reach; callers must still drop k.
func WipePrivateKey(k *rsa.PrivateKey) {
	if k == nil {
		return
	}
	wipeInt(k.D)
	for _, p := range k.Primes {
		wipeInt(p)
	}
	wipeInt(k.Precomputed.Dp)
	wipeInt(k.Precomputed.Dq)
	wipeInt(k.Precomputed.Qinv)
}

func wipeInt(n *big.Int) {
	if n == nil {
		return
	}
	words := n.Bits()
	clear(words)
	runtime.KeepAlive(&words)
	n.SetInt64(0)
}
