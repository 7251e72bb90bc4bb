package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gatherly/availability/internal/imaging"
	"github.com/gatherly/availability/internal/model"
)

func main() {
	var (
		input  = flag.String("input", "", "path to week data JSON (optional, sample week if omitted)")
		output = flag.String("output", "week.png", "output PNG path")
		tz     = flag.String("tz", "America/New_York", "timezone for day boundaries")
	)
	flag.Parse()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Printf("Invalid timezone %q: %v\n", *tz, err)
		os.Exit(1)
	}

	week := model.NewWeekKey(time.Now().In(loc))

	var days model.WeekData
	if *input != "" {
		raw, err := os.ReadFile(*input)
		if err != nil {
			fmt.Printf("Failed to read input: %v\n", err)
			os.Exit(1)
		}
		days, err = model.DecodeWeekData(raw)
		if err != nil {
			fmt.Printf("Failed to decode week data: %v\n", err)
			os.Exit(1)
		}
	} else {
		days = sampleWeek()
	}

	imageData, err := imaging.GenerateWeekImage(week, days, loc)
	if err != nil {
		fmt.Printf("Failed to generate image: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*output, imageData, 0644); err != nil {
		fmt.Printf("Failed to write file: %v\n", err)
		os.Exit(1)
	}

	encoded, _ := json.Marshal(days)
	fmt.Printf("✅ Image saved to %s\n", *output)
	fmt.Printf("📅 Week of %s\n", week)
	fmt.Printf("📊 Data: %s\n", encoded)
}

// sampleWeek собирает демонстрационную неделю
func sampleWeek() model.WeekData {
	return model.WeekData{
		model.DayMonday: {Available: true, Ranges: []model.TimeRange{
			{StartMin: 540, EndMin: 720},
			{StartMin: 780, EndMin: 1020},
		}},
		model.DayTuesday: {Available: true, Ranges: []model.TimeRange{
			{StartMin: 600, EndMin: 660},
		}},
		model.DayWednesday: {},
		model.DayThursday: {Available: true, Ranges: []model.TimeRange{
			{StartMin: 540, EndMin: 1020},
		}},
		model.DayFriday: {Available: true, Ranges: []model.TimeRange{
			{StartMin: 660, EndMin: 840},
		}},
		model.DaySaturday: {Available: true, Ranges: []model.TimeRange{
			{StartMin: 0, EndMin: model.MinutesPerDay},
		}},
		model.DaySunday: {},
	}
}
