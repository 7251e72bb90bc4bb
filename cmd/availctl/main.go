package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gatherly/availability/internal/app"
	"github.com/gatherly/availability/internal/config"
	"github.com/gatherly/availability/internal/model"
	"github.com/gatherly/availability/internal/repository"
	"github.com/gatherly/availability/internal/service"
	"github.com/gatherly/availability/internal/source"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const usage = `Usage: availctl <command> [flags]

Commands:
  sync           run calendar sync for one user
  apply-default  apply the active default schedule to future weeks
  save-default   save week data from a JSON file as the default schedule
  set-day        edit one day of a user's week
  free-dates     list upcoming dates when all listed users are available
  common-ranges  show common free ranges for users on a date
  show           print a user's stored week
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	c := &cli{
		cfg:              cfg,
		logger:           logger,
		availabilityRepo: repository.NewAvailabilityRepository(pool),
		scheduleRepo:     repository.NewDefaultScheduleRepository(pool),
		syncRepo:         repository.NewCalendarSyncRepository(pool),
	}

	if err := c.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

type cli struct {
	cfg              *config.Config
	logger           *zap.Logger
	availabilityRepo *repository.AvailabilityRepository
	scheduleRepo     *repository.DefaultScheduleRepository
	syncRepo         *repository.CalendarSyncRepository
}

func (c *cli) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "sync":
		return c.sync(ctx, args)
	case "apply-default":
		return c.applyDefault(ctx, args)
	case "save-default":
		return c.saveDefault(ctx, args)
	case "set-day":
		return c.setDay(ctx, args)
	case "free-dates":
		return c.freeDates(ctx, args)
	case "common-ranges":
		return c.commonRanges(ctx, args)
	case "show":
		return c.show(ctx, args)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// sync синхронизирует доступность одного пользователя с календарями
func (c *cli) sync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	fs.Parse(args)
	if *userID == 0 {
		return fmt.Errorf("-user is required")
	}

	loc := c.cfg.Location()
	tokens := source.NewStoredTokenProvider(c.syncRepo)
	sources := []source.BusySource{
		source.NewGoogleSource(tokens, loc, c.logger),
		source.NewOutlookSource(tokens, loc, c.logger),
	}
	reconciler := service.NewReconciler(c.cfg.MinRangeMinutes, c.logger)
	syncService := service.NewSyncService(
		c.availabilityRepo, c.syncRepo, sources, reconciler,
		loc, c.cfg.LookaheadWeeks, c.logger)

	return syncService.SyncUser(ctx, *userID)
}

// applyDefault раскатывает активный шаблон на будущие недели
func (c *cli) applyDefault(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apply-default", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	weeks := fs.Int("weeks", 0, "week count (default from config)")
	fs.Parse(args)
	if *userID == 0 {
		return fmt.Errorf("-user is required")
	}

	svc := c.scheduleService()
	stats, err := svc.ApplyToFutureWeeks(ctx, *userID, *weeks)
	if err != nil {
		return err
	}
	fmt.Printf("created=%d updated=%d errors=%d\n", stats.Created, stats.Updated, stats.Errors)
	return nil
}

// saveDefault сохраняет недельные данные из JSON-файла как шаблон
func (c *cli) saveDefault(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save-default", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	input := fs.String("input", "", "path to week data JSON")
	fs.Parse(args)
	if *userID == 0 || *input == "" {
		return fmt.Errorf("-user and -input are required")
	}

	raw, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	days, err := model.DecodeWeekData(raw)
	if err != nil {
		return fmt.Errorf("decode week data: %w", err)
	}

	stats, err := c.scheduleService().SaveAsDefault(ctx, *userID, days)
	if err != nil {
		return err
	}
	fmt.Printf("created=%d updated=%d errors=%d\n", stats.Created, stats.Updated, stats.Errors)
	return nil
}

// setDay редактирует один день недели пользователя
func (c *cli) setDay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-day", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	week := fs.String("week", "", "week date YYYY-MM-DD (default current week)")
	day := fs.String("day", "", "day name (monday..sunday)")
	ranges := fs.String("ranges", "", `comma-separated ranges, e.g. "9:00 AM-12:00 PM,1:00 PM-5:00 PM"`)
	allDay := fs.Bool("all-day", false, "mark the whole day available")
	unavailable := fs.Bool("unavailable", false, "mark the day unavailable")
	fs.Parse(args)
	if *userID == 0 || *day == "" {
		return fmt.Errorf("-user and -day are required")
	}

	name := model.DayName(strings.ToLower(*day))
	known := false
	for _, n := range model.DayNames {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown day %q", *day)
	}

	loc := c.cfg.Location()
	key := model.NewWeekKey(time.Now().In(loc))
	if *week != "" {
		parsed, err := model.ParseWeekKey(*week)
		if err != nil {
			return err
		}
		key = parsed
	}

	var parsed []model.TimeRange
	if *ranges != "" {
		for _, part := range strings.Split(*ranges, ",") {
			bounds := strings.SplitN(part, "-", 2)
			if len(bounds) != 2 {
				return fmt.Errorf("range %q: expected START-END", part)
			}
			startMin, err := model.ToMinutes(bounds[0])
			if err != nil {
				return err
			}
			endMin, err := model.ToMinutes(bounds[1])
			if err != nil {
				return err
			}
			parsed = append(parsed, model.TimeRange{StartMin: startMin, EndMin: endMin})
		}
	}

	record, err := c.availabilityRepo.GetByUserWeek(ctx, *userID, key)
	if err != nil {
		return err
	}
	if record == nil {
		record = &model.AvailabilityRecord{UserID: *userID, Week: key, Days: model.WeekData{}}
	}

	reconciler := service.NewReconciler(c.cfg.MinRangeMinutes, c.logger)
	reconciler.SetDay(record, name, !*unavailable, parsed, *allDay)

	if err := c.availabilityRepo.Upsert(ctx, record); err != nil {
		return err
	}
	fmt.Printf("updated %s of week %s\n", *day, key)
	return nil
}

// freeDates выводит ближайшие даты, когда доступны все пользователи
func (c *cli) freeDates(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("free-dates", flag.ExitOnError)
	users := fs.String("users", "", "comma-separated user ids")
	days := fs.Int("days", 7, "days ahead to scan")
	fs.Parse(args)

	memberIDs, err := parseUserIDs(*users)
	if err != nil {
		return err
	}

	svc := service.NewGroupAvailabilityService(c.availabilityRepo, c.cfg.Location(), c.logger)
	dates, err := svc.UpcomingFreeDates(ctx, memberIDs, *days)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		fmt.Println("no common free dates")
		return nil
	}
	for _, d := range dates {
		fmt.Println(d.Format("2006-01-02 (Monday)"))
	}
	return nil
}

// commonRanges выводит пересечение доступных диапазонов на дату
func (c *cli) commonRanges(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("common-ranges", flag.ExitOnError)
	users := fs.String("users", "", "comma-separated user ids")
	date := fs.String("date", "", "date YYYY-MM-DD")
	tz := fs.String("tz", "", "viewer timezone for display (optional)")
	fs.Parse(args)

	memberIDs, err := parseUserIDs(*users)
	if err != nil {
		return err
	}
	loc := c.cfg.Location()
	day, err := time.ParseInLocation("2006-01-02", *date, loc)
	if err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	svc := service.NewGroupAvailabilityService(c.availabilityRepo, loc, c.logger)
	ranges, err := svc.CommonFreeRanges(ctx, memberIDs, day)
	if err != nil {
		return err
	}
	if len(ranges) == 0 {
		fmt.Println("no common free ranges")
		return nil
	}

	projector := service.NewTimezoneProjector(loc, c.logger)
	for _, pr := range projector.Project(ranges, *tz) {
		fmt.Printf("%s - %s\n", pr.Start, pr.End)
	}
	return nil
}

// show печатает сохранённую неделю пользователя
func (c *cli) show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	week := fs.String("week", "", "week date YYYY-MM-DD (default current week)")
	fs.Parse(args)
	if *userID == 0 {
		return fmt.Errorf("-user is required")
	}

	loc := c.cfg.Location()
	key := model.NewWeekKey(time.Now().In(loc))
	if *week != "" {
		parsed, err := model.ParseWeekKey(*week)
		if err != nil {
			return err
		}
		key = parsed
	}

	record, err := c.availabilityRepo.GetByUserWeek(ctx, *userID, key)
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Printf("no data for user %d week %s\n", *userID, key)
		return nil
	}

	encoded, err := json.MarshalIndent(record.Days, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func (c *cli) scheduleService() *service.DefaultScheduleService {
	return service.NewDefaultScheduleService(
		c.scheduleRepo, c.availabilityRepo, c.cfg.Location(),
		c.cfg.DefaultApplyWeeks, c.logger)
}

// parseUserIDs разбирает список идентификаторов через запятую
func parseUserIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, fmt.Errorf("-users is required")
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse user id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
