package proc

import "errors"

var (
	// ErrResolution wraps any failure to turn a query into tracks or a track
	// into a playable media URL.
	ErrResolution = errors.New("resolution failed")

	ErrNoVoiceChannel  = errors.New("no voice channel to connect to")
	ErrNothingPlaying  = errors.New("nothing is playing")
	ErrSeekOutOfRange  = errors.New("seek position is beyond track length")
	ErrIndexOutOfRange = errors.New("queue index out of range")
	ErrPlayerClosed    = errors.New("player is closed")
	ErrNotConnected    = errors.New("not connected to voice")
)
