package zipvault

import "io"

// backing is the capability set Archive needs from its underlying
// byte stream for random-access modes (Unzip, Add, Append-reading the
// self-extractor prefix). Create on a sequential output only needs
// io.Writer and stores nil here.
type backing interface {
	io.ReaderAt
	io.Writer
	io.Seeker
}

// ownedStream implements spec section 9's "ownership of a borrowed
// byte stream with auto-close flag" as a small sum type: Owned
// streams (opened by this library from a path) always close; Borrowed
// streams (supplied by the caller) close only if autoClose is set.
// There's no separate sum-type tag in Go's type system the way a
// Owned(T)|Borrowed(&T,bool) enum would read in the source language;
// the same effect falls out of always storing the bool and deciding
// at Close time.
type ownedStream struct {
	closer    io.Closer // nil if the caller's stream isn't an io.Closer
	owned     bool
	autoClose bool
}

func newOwnedStream(c io.Closer) ownedStream {
	return ownedStream{closer: c, owned: true, autoClose: true}
}

func newBorrowedStream(c io.Closer, autoClose bool) ownedStream {
	return ownedStream{closer: c, owned: false, autoClose: autoClose}
}

func (s ownedStream) Close() error {
	if s.closer == nil {
		return nil
	}
	if s.owned || s.autoClose {
		return s.closer.Close()
	}
	return nil
}
