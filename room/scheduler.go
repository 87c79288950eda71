package room

import (
	"crypto/rand"
	"math/big"
	"time"
)

type Timer interface {
	Stop() bool
}

// Scheduler arms single-fire callbacks. f runs on its own goroutine and must
// hand its work back to the actor inbox.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func RealScheduler() Scheduler { return realScheduler{} }

// IndexPicker draws a uniform index in [0, n).
type IndexPicker interface {
	Pick(n int) (int, error)
}

type cryptoPicker struct{}

func (cryptoPicker) Pick(n int) (int, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(i.Int64()), nil
}

func CryptoPicker() IndexPicker { return cryptoPicker{} }
