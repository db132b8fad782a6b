/*
Package engine turns a sequence of frames into an interpolated animation.

Run is the synchronous pipeline: it pairs consecutive frames, estimates the
motion between them and warps the first frame of every pair along that motion
(or visualizes the motion itself).

Processor wraps Run in a long lived background worker. Hosts submit new frames
and parameters at any rate, the worker coalesces them, recomputes from scratch
and reports progress, results and errors through queues that the host polls on
its own schedule:

	p := engine.NewProcessor(flow.NewNative(nil), logger)
	p.Start(ctx)
	defer p.Stop()

	if err := p.SubmitParams(params); err != nil {
	    log.Fatal(err)
	}
	p.SubmitFrames(frames)

	// once per tick
	p.Poll(myEvents)
*/
package engine
