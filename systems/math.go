package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/fauna/components"
)

// clampFloat clamps v between minVal and maxVal.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// approachAngle turns from toward target by at most maxStep radians.
func approachAngle(from, target, maxStep float64) float64 {
	delta := components.NormalizeAngle(target - from)
	return components.NormalizeAngle(from + clampFloat(delta, -maxStep, maxStep))
}

// flatDistance returns the distance between two points on the XZ plane.
func flatDistance(p, q r3.Vec) float64 {
	return r3.Norm(components.Flat(r3.Sub(p, q)))
}

// ahead reports whether target lies in the forward half-plane of yaw.
func ahead(pos r3.Vec, yaw float64, target r3.Vec) bool {
	return r3.Dot(components.YawDir(yaw), components.Flat(r3.Sub(target, pos))) > 0
}
