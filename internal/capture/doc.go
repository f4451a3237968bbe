// Package capture implements the liveness capture session used when an
// applicant takes a profile photo.
//
// A Session walks the applicant through a fixed list of pose challenges.
// Each challenge is checked by a PoseClassifier; once the last one passes
// a short countdown runs and a single JPEG still is taken from the camera
// stream. The stream is owned by the session and released on every exit
// path: capture, device failure and Close.
//
// All delays are bound to a per-lifecycle context so that closing a
// session mid-detection or mid-countdown never mutates it afterwards.
//
// A Registry holds the sessions of a running portal. Sessions nobody
// watches or touches for the configured idle timeout are swept and closed,
// which releases their camera.
package capture
