// benchmark seeds (or loads) a world, runs it for a number of simulated days and
// reports throughput.
//
// Usage:
//
//	go run ./cmd/benchmark [-people 1000] [-days 960] [-locations 10] [-seed 1] [-in path] [-out path]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/engine"
	"github.com/talgya/gridworld/internal/entropy"
	"github.com/talgya/gridworld/internal/snapshot"
)

func main() {
	people := flag.Int("people", 1000, "founders to seed")
	days := flag.Int("days", calendar.DaysPerYear*10, "ticks (days) to simulate")
	locations := flag.Int("locations", 10, "locations the founders are spread over")
	seed := flag.Int64("seed", 1, "random seed")
	in := flag.String("in", "", "resume from this save file instead of seeding founders")
	out := flag.String("out", "", "write a save file here when done")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if *people < 0 || *days < 1 || *locations < 1 {
		fmt.Fprintln(os.Stderr, "people must be >= 0, days and locations >= 1")
		os.Exit(2)
	}

	// A save file carries no random state; the seed drives the run either way.
	w := engine.NewWorld(engine.Options{})
	w.SetRand(entropy.NewSource(*seed))
	if *in != "" {
		res, err := w.LoadFromFile(*in)
		if err != nil && !errors.Is(err, snapshot.ErrInvalidState) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		*people = res.Population
	} else {
		for i := range *locations {
			n := *people / *locations
			if i < *people%*locations {
				n++
			}
			w.SeedPopulationAt(n, agents.LocationID(i))
		}
	}

	var before runtime.MemStats
	runtime.ReadMemStats(&before)

	start := time.Now()
	var total engine.TickResult
	report := calendar.DaysPerYear
	for done := 0; done < *days; done += report {
		res := w.TickN(min(report, *days-done))
		total.Births += res.Births
		total.Deaths += res.Deaths
		total.Marriages += res.Marriages
		total.Pregnancies += res.Pregnancies
		total.Dissolutions += res.Dissolutions
		fmt.Printf("%-30s population %-8s births %-6d deaths %-6d\n",
			res.Date.String(), humanize.Comma(int64(res.Population)), res.Births, res.Deaths)
	}
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.ReadMemStats(&after)

	perTick := elapsed / time.Duration(*days)
	fmt.Println()
	fmt.Printf("simulated %s days in %s (%s per day, %s days/s)\n",
		humanize.Comma(int64(*days)), elapsed.Round(time.Millisecond), perTick,
		humanize.CommafWithDigits(float64(*days)/elapsed.Seconds(), 1))
	fmt.Printf("population %s -> %s\n", humanize.Comma(int64(*people)), humanize.Comma(int64(w.Population())))
	fmt.Printf("births %d, deaths %d, marriages %d, pregnancies %d, dissolutions %d\n",
		total.Births, total.Deaths, total.Marriages, total.Pregnancies, total.Dissolutions)
	fmt.Printf("events retained %s, allocated %s\n",
		humanize.Comma(int64(w.EventCount())), humanize.Bytes(after.TotalAlloc-before.TotalAlloc))

	if *out != "" {
		res, err := w.SaveToFile(*out, nil, uint32(*seed))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("saved %s (%s)\n", *out, humanize.Bytes(uint64(res.FileBytes)))
	}
}
