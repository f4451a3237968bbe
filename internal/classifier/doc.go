// Package classifier holds the pose classifiers that back a capture
// session: a Gemini model asked about each frame, and a remote gesture
// detector reached over a websocket.
package classifier
