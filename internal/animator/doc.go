// Package animator plays multi-frame animations on the matrices in the
// background and arbitrates between playback and one-shot commands.
//
// Each of the three slots (left, right, pair) holds at most one live Token.
// Starting playback or issuing a visual command first cancels every token that
// touches the affected sides, pair included. Playback checks its token under
// the shared mutex before every frame, so a cancelled task never writes again.
package animator
