package llm

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"sync/atomic"
)

const maxLineSize = 1 << 20

// eventStream is the cursor shape shared by the SDK server-sent event decoders.
type eventStream[T any] interface {
	Next() bool
	Current() T
	Err() error
	Close() error
}

// singleUse makes seq yield only on its first range; later ranges are empty.
func singleUse(seq iter.Seq[string]) iter.Seq[string] {
	var used atomic.Bool
	return func(yield func(string) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		seq(yield)
	}
}

func errorFragment(err error) string {
	return "Error: " + err.Error()
}

func errorStream(err error) iter.Seq[string] {
	return singleUse(func(yield func(string) bool) {
		yield(errorFragment(err))
	})
}

// adaptEvents turns an SDK event cursor into text fragments. open is called
// when iteration starts.
func adaptEvents[T any](open func() eventStream[T], fragment func(T) string) iter.Seq[string] {
	return singleUse(func(yield func(string) bool) {
		s := open()
		defer s.Close()
		for s.Next() {
			if text := fragment(s.Current()); text != "" {
				if !yield(text) {
					return
				}
			}
		}
		if err := s.Err(); err != nil {
			yield(errorFragment(err))
		}
	})
}

// adaptPairs does the same for value/error sequences.
func adaptPairs[T any](open func() iter.Seq2[T, error], fragment func(T) string) iter.Seq[string] {
	return singleUse(func(yield func(string) bool) {
		for v, err := range open() {
			if err != nil {
				yield(errorFragment(err))
				return
			}
			if text := fragment(v); text != "" {
				if !yield(text) {
					return
				}
			}
		}
	})
}

// adaptLines reads newline-delimited records. Records fragment cannot decode
// are skipped.
func adaptLines(open func() (io.ReadCloser, error), fragment func([]byte) (string, bool)) iter.Seq[string] {
	return singleUse(func(yield func(string) bool) {
		body, err := open()
		if err != nil {
			yield(errorFragment(err))
			return
		}
		defer body.Close()

		sc := bufio.NewScanner(body)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			text, ok := fragment(line)
			if !ok || text == "" {
				continue
			}
			if !yield(text) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(errorFragment(err))
		}
	})
}
