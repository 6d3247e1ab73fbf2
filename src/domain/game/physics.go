package game

import (
	"math"
	"math/rand/v2"
)

// Court geometry and ball tuning, in court units.
const (
	ScreenWidth  = 160.0
	ScreenHeight = 90.0
	PaddleHeight = 15.0
	PaddleInset  = 10.0
	PaddleSpeed  = 3.0
	BallRadius   = 1.5
	Epsilon      = 1e-2
	SpeedStep    = 1.05
	ServeSpeed   = 1.05
	ServeVX      = 1.0
	ServeVY      = 0.9
)

// Outcome reports what happened during one physics step.
type Outcome struct {
	Scored bool
	Scorer Role
}

// Advance moves the ball one step and resolves wall, paddle and goal
// interactions. It never mutates its argument.
func Advance(s State) (State, Outcome) {
	b := s.Ball
	nextX := b.X + b.VX
	nextY := b.Y + b.VY

	if nextY <= 0 || nextY >= ScreenHeight {
		b.VY = -b.VY
		nextY = clamp(b.Y+b.VY, 0, ScreenHeight)
	}

	// Segment test against the paddle plane so fast balls that would skip
	// over the face between two ticks still collide.
	p1, p2 := s.Players.Player1, s.Players.Player2
	if b.VX < 0 && nextX-BallRadius <= p1.X && p1.X <= b.X+BallRadius && onPaddle(nextY, p1.Y) {
		b.VX = -b.VX
		deflect(&b, nextY, p1.Y)
		if nextX-BallRadius < p1.X {
			nextX = p1.X + BallRadius
		}
	} else if b.VX > 0 && b.X-BallRadius <= p2.X && p2.X <= nextX+BallRadius && onPaddle(nextY, p2.Y) {
		b.VX = -b.VX
		deflect(&b, nextY, p2.Y)
		if nextX+BallRadius > p2.X {
			nextX = p2.X - BallRadius
		}
	}

	b.X = nextX
	b.Y = nextY
	s.Ball = b

	switch {
	case b.X <= 0+Epsilon:
		return s, Outcome{Scored: true, Scorer: RolePlayer2}
	case b.X >= ScreenWidth-Epsilon:
		return s, Outcome{Scored: true, Scorer: RolePlayer1}
	}
	return s, Outcome{}
}

func onPaddle(y, paddleY float64) bool {
	return paddleY <= y && y <= paddleY+PaddleHeight
}

// deflect applies the quarter-section bias and the speed increment.
func deflect(b *Ball, impactY, paddleY float64) {
	section := PaddleHeight / 4
	magnitude := math.Abs(b.VY)
	if magnitude == 0 {
		magnitude = ServeVY
	}
	switch {
	case impactY <= paddleY+section:
		b.VY = -magnitude
	case impactY >= paddleY+PaddleHeight-section:
		b.VY = magnitude
	}
	b.VX *= SpeedStep
	b.VY *= SpeedStep
}

// MovePaddle applies the paddle's slide flag, keeping it on court.
func MovePaddle(p *Paddle) {
	switch p.Slide {
	case SlideUp:
		p.Y = math.Max(p.Y-PaddleSpeed, 0)
	case SlideDown:
		p.Y = math.Min(p.Y+PaddleSpeed, ScreenHeight-PaddleHeight)
	}
}

// ServeBall returns a centred ball with a random diagonal direction.
func ServeBall(rng *rand.Rand) Ball {
	vx, vy := ServeVX, ServeVY
	if rng.Float64() < 0.5 {
		vx = -vx
	}
	if rng.Float64() < 0.5 {
		vy = -vy
	}
	return Ball{
		X:  ScreenWidth / 2,
		Y:  ScreenHeight / 2,
		VX: ServeSpeed * vx,
		VY: ServeSpeed * vy,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
