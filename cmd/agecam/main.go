// Command agecam detects faces in a camera stream, estimates an age bracket
// for each one and streams the annotated result to a viewer.
//
// Usage:
//
//	agecam                       # webcam 0, web viewer on :5000
//	agecam run --sink window     # local OpenCV window
//	agecam watch localhost:5000  # follow a running viewer's text
//	agecam runs --db postgres://localhost/agecam
package main

func main() {
	Execute()
}
