package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	busrepository "geobus/internal/buses/repository"
	busservice "geobus/internal/buses/service"
	busvalidator "geobus/internal/buses/validator"
	"geobus/pkg/config"
	"geobus/pkg/journeytime"
	"geobus/pkg/logger"
	"geobus/pkg/model"

	"github.com/spf13/pflag"
)

const JobName = "bus-seed"

type busCreator interface {
	Create(ctx context.Context, bus *model.Bus) error
}

type routeChecker interface {
	ExistsForRouteAndDate(ctx context.Context, from, to string, day time.Time) (bool, error)
}

// seeder inserts one dated copy of template per day in [start, end].
type seeder struct {
	buses    busCreator
	existing routeChecker
	log      *logger.Logger
}

type seedResult struct {
	Inserted int
	Skipped  int
}

func (s *seeder) seed(ctx context.Context, template model.Bus, start, end time.Time) (seedResult, error) {
	var result seedResult
	if end.Before(start) {
		return result, fmt.Errorf("end date %s is before start date %s", journeytime.FormatDay(end), journeytime.FormatDay(start))
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dateStr := journeytime.FormatDay(day)

		exists, err := s.existing.ExistsForRouteAndDate(ctx, template.From, template.To, day)
		if err != nil {
			return result, fmt.Errorf("check %s: %w", dateStr, err)
		}
		if exists {
			s.log.Info("Skipped existing bus", "date", dateStr, "from", template.From, "to", template.To)
			result.Skipped++
			continue
		}

		bus := template
		bus.BusNumber = template.BusNumber + "-" + dateStr
		departure := day
		bus.DepartureDate = &departure
		if err := s.buses.Create(ctx, &bus); err != nil {
			return result, fmt.Errorf("insert %s: %w", dateStr, err)
		}
		s.log.Info("Inserted bus", "date", dateStr, "bus_number", bus.BusNumber)
		result.Inserted++
	}
	return result, nil
}

func main() {
	var (
		routesPath string
		startDate  string
		endDate    string
		days       int
		single     routeTemplate
	)

	flagSet := pflag.NewFlagSet(JobName, pflag.ContinueOnError)
	flagSet.StringVar(&routesPath, "routes", "", "YAML file listing the routes to seed (overrides the single-route flags)")
	flagSet.StringVar(&startDate, "start", "", "first date YYYY-MM-DD (default today)")
	flagSet.StringVar(&endDate, "end", "", "last date YYYY-MM-DD")
	flagSet.IntVar(&days, "days", 8, "number of days to seed when --end is not given")
	flagSet.StringVar(&single.From, "from", "Mumbai", "origin city")
	flagSet.StringVar(&single.To, "to", "Pune", "destination city")
	flagSet.StringVar(&single.BusNumber, "bus-number", "MH01-1001", "base bus number, suffixed with the date")
	flagSet.StringVar(&single.BusName, "bus-name", "Express Line", "operator name")
	flagSet.StringVar(&single.Image, "image", "images/bus1.jpg", "image path")
	flagSet.StringVar(&single.DepartureTime, "departure", "20:00", "departure time")
	flagSet.StringVar(&single.ArrivalTime, "arrival", "23:00", "arrival time")
	flagSet.Float64Var(&single.Price, "price", 500, "fare per seat")
	flagSet.IntVar(&single.TotalSeats, "seats", 0, "seats per bus, 0 uses DEFAULT_SEAT_COUNT")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := config.Load(JobName)

	templates := []model.Bus{single.bus()}
	if routesPath != "" {
		loaded, err := loadRoutes(routesPath)
		if err != nil {
			cfg.Log.Fatal("Failed to load routes", "path", routesPath, "error", err)
		}
		templates = loaded
	}

	start, end, err := seedWindow(startDate, endDate, days, journeytime.Today(time.Now(), cfg.ReferenceLocation()))
	if err != nil {
		cfg.Log.Fatal("Invalid date range", "error", err)
	}

	cfg.SetMongo()
	validator, err := busvalidator.NewBusValidator()
	if err != nil {
		cfg.Log.Fatal("Failed to build validator", "error", err)
	}
	repo := busrepository.NewMongoBusRepository(cfg)
	s := &seeder{
		buses:    busservice.NewBusService(repo, validator, cfg),
		existing: repo,
		log:      cfg.Log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var total seedResult
	for _, template := range templates {
		result, err := s.seed(ctx, template, start, end)
		total.Inserted += result.Inserted
		total.Skipped += result.Skipped
		if err != nil {
			cfg.Log.Error("Seeding failed", "route", template.From+" -> "+template.To, "error", err, "inserted", total.Inserted)
			cfg.GracefulShutdown()
			os.Exit(1)
		}
	}
	cfg.GracefulShutdown()
	cfg.Log.Info("Seeding complete",
		"routes", len(templates),
		"start", journeytime.FormatDay(start),
		"end", journeytime.FormatDay(end),
		"inserted", total.Inserted,
		"skipped", total.Skipped,
	)
}

// seedWindow resolves the inclusive date range. An explicit end wins over days.
func seedWindow(startDate, endDate string, days int, today time.Time) (time.Time, time.Time, error) {
	start := today
	if startDate != "" {
		day, err := journeytime.ParseDay(startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
		}
		start = day
	}

	if endDate != "" {
		end, err := journeytime.ParseDay(endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
		return start, end, nil
	}
	if days < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("days must be at least 1, got %d", days)
	}
	return start, start.AddDate(0, 0, days-1), nil
}
