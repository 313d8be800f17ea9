package pathfinder

import (
	"sort"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
)

const MaxDangerAreas = 5

const (
	DefaultThreatPenalty    = 10
	DefaultExplosivePenalty = 100
	DefaultExplosiveRadius  = 5
	DefaultAllyPenalty      = 4
	DefaultAllyRadius       = 1
)

// Danger is a position to keep away from. Zero Radius and Penalty take the
// default of the danger kind.
type Danger struct {
	Position common.Vec3
	Radius   float32
	Penalty  float32
}

// DangerOptions are turned into at most MaxDangerAreas cost areas: the
// threat first, then explosives, then allies, each kind ordered by distance
// to the path start.
type DangerOptions struct {
	Threat     *Danger
	Explosives []Danger
	Allies     []Danger
}

func (o *DangerOptions) empty() bool {
	return o.Threat == nil && len(o.Explosives) == 0 && len(o.Allies) == 0
}

func orDefault(v, def float32) float32 {
	if v <= 0 {
		return def
	}
	return v
}

func byDistance(list []Danger, from common.Vec3) []Danger {
	res := append([]Danger(nil), list...)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Position.Sub(from).LenSqr() < res[j].Position.Sub(from).LenSqr()
	})
	return res
}

func buildDangerAreas(o *DangerOptions, start common.Vec3) []mnm.DangerArea {
	if o.empty() {
		return nil
	}
	res := make([]mnm.DangerArea, 0, MaxDangerAreas)
	if o.Threat != nil {
		res = append(res, mnm.DangerAreaDirectional{
			Position: o.Threat.Position,
			Range:    o.Threat.Radius,
			Penalty:  orDefault(o.Threat.Penalty, DefaultThreatPenalty),
		})
	}
	for _, e := range byDistance(o.Explosives, start) {
		if len(res) == MaxDangerAreas {
			return res
		}
		res = append(res, mnm.DangerAreaConstant{
			Position: e.Position,
			Radius:   orDefault(e.Radius, DefaultExplosiveRadius),
			Penalty:  orDefault(e.Penalty, DefaultExplosivePenalty),
		})
	}
	for _, a := range byDistance(o.Allies, start) {
		if len(res) == MaxDangerAreas {
			return res
		}
		res = append(res, mnm.DangerAreaConstant{
			Position: a.Position,
			Radius:   orDefault(a.Radius, DefaultAllyRadius),
			Penalty:  orDefault(a.Penalty, DefaultAllyPenalty),
		})
	}
	return res
}
