package stream

import "command-center/pkg/model"

// MultiSink fans one envelope out to several sinks in order. Used to feed
// the view-model and the session archive from the same read loop.
type MultiSink []Sink

func (s MultiSink) Apply(e model.Envelope) {
	for _, sink := range s {
		sink.Apply(e)
	}
}

func (s MultiSink) Reset() {
	for _, sink := range s {
		sink.Reset()
	}
}
