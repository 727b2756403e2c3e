// Package eruption is a client for the Eruption daemon's local control
// socket.
//
// A Connection performs one blocking request/response exchange per call:
//
//	conn := eruption.New(eruption.Options{})
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	defer conn.Disconnect()
//
//	canvas := eruption.NewCanvas()
//	canvas.Fill(eruption.RGBA(255, 0, 0, 128))
//	if err := conn.SubmitCanvas(ctx, canvas); err != nil {
//		return err
//	}
//
// All data operations fail with ErrNotConnected before Connect and after
// Disconnect. Replies that do not decode, or that answer a different
// request kind, fail with ErrRequestFailed.
package eruption
