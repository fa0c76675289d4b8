package rank

// One signal per scoring dimension. Extraction never fails: unmatched
// input yields a zero score, not an error.

type SenioritySignal struct {
	Level string // VP, Senior Director, Director, Other
	Score int    // 0-30
}

type PnLSignal struct {
	Score    int // 0-20
	Evidence string
}

type TransformationSignal struct {
	Score    int // 0-20
	Evidence string
}

type IndustrySignal struct {
	Score    int // 0-20
	Evidence string
}

type GeoSignal struct {
	Score    int // 0-10
	Banned   bool
	Evidence string
}
