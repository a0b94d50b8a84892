// Package buffer provides the bounded drop-oldest ring used for
// inter-session delivery and for journal intake.
//
// A Ring never blocks its producers: under sustained overflow the oldest
// unread item is evicted and counted in Stats.Dropped.
package buffer
