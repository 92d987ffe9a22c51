package logx

import (
	"fmt"
	"strings"
	"time"

	"gridpolicy/grid"
)

const eventSep = "═══════════════════════════════════════════════════════════════════"

// LogYearBlock - one simulated year of a trajectory
// deficit: actions taken to close a generation shortfall, in order
// actions: additional sampled actions, in order
// y: the grid's aggregates after all of the year's actions
func LogYearBlock(year int, deficit, actions []string, y grid.YearlyAggregates) {
	balance := Success(fmt.Sprintf("+%s GWh", formatNumber(int(y.PowerBalance()))))
	if y.Deficit() {
		balance = Error(fmt.Sprintf("%s GWh", formatNumber(int(y.PowerBalance()))))
	}
	fmt.Printf("%s\n%s  %s  YEAR %d\nDeficit:      %s\nActions:      %s\nBalance:      %s\nNet CO2:      %s\nCost:         %s\nOpinion:      %s\nReliability:  %s\n",
		eventSep,
		C(cyan, time.Now().UTC().Format("15:04:05.000Z")),
		Channel("GRID"),
		year,
		actionList(deficit),
		actionList(actions),
		balance,
		EmissionsColor(y.NetEmissions()),
		FormatCost(y.TotalCost),
		OpinionColor(y.PublicOpinion),
		ReliabilityColor(y.Reliability),
	)
}

func actionList(names []string) string {
	if len(names) == 0 {
		return Dim("(none)")
	}
	return strings.Join(names, ", ")
}

// LogTrajectoryFooter - closing block with the trajectory's score
func LogTrajectoryFooter(index int, score float64, tier int, replayed bool) {
	tag := ""
	if replayed {
		tag = " " + Dim("(replay)")
	}
	fmt.Printf("%s\n%s  %s  TRAJECTORY %d score=%s tier=%d%s\n%s\n",
		eventSep,
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("GRID"),
		index, ScoreColor(score, tier), tier, tag,
		eventSep,
	)
}

// LogConfigAdjust - configuration value replaced at startup
func LogConfigAdjust(name string, oldVal, newVal any) {
	fmt.Printf("%s  %s  CONFIG: %s %v->%v\n",
		C(gray, time.Now().UTC().Format("15:04:05Z")),
		Channel("RUN "),
		name, oldVal, newVal,
	)
}
