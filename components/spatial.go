package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Up is the world up axis.
var Up = r3.Vec{Y: 1}

// Transform is an agent's world placement. Yaw 0 faces +Z, angles in radians.
type Transform struct {
	Position r3.Vec
	Yaw      float64
	Pitch    float64
}

// Forward returns the horizontal unit heading.
func (t Transform) Forward() r3.Vec {
	return YawDir(t.Yaw)
}

// YawDir returns the horizontal unit vector for a yaw angle.
func YawDir(yaw float64) r3.Vec {
	return r3.Vec{X: math.Sin(yaw), Z: math.Cos(yaw)}
}

// Dir returns the unit vector for a yaw and pitch; positive pitch climbs.
func Dir(yaw, pitch float64) r3.Vec {
	c := math.Cos(pitch)
	return r3.Vec{X: math.Sin(yaw) * c, Y: math.Sin(pitch), Z: math.Cos(yaw) * c}
}

// YawTo returns the yaw that faces from one point toward another.
func YawTo(from, to r3.Vec) float64 {
	return math.Atan2(to.X-from.X, to.Z-from.Z)
}

// NormalizeAngle wraps an angle to [-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// Flat drops the vertical component.
func Flat(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}
