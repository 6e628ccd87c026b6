package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ElVatoEste/biblioteca-reservas/internal/auth"
	"github.com/ElVatoEste/biblioteca-reservas/internal/calendar"
	"github.com/ElVatoEste/biblioteca-reservas/internal/models"
	"github.com/ElVatoEste/biblioteca-reservas/internal/pager"
	"github.com/ElVatoEste/biblioteca-reservas/pkg/client"
	"github.com/joho/godotenv"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: reservas-client [schedule|attendance|mark|watch] [flags]")
		os.Exit(1)
	}
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "America/Managua"))
	if err != nil {
		log.Fatalf("invalid TIMEZONE: %v", err)
	}
	refreshEvery, err := time.ParseDuration(getEnv("SESSION_REFRESH_EVERY", "10m"))
	if err != nil || refreshEvery <= 0 {
		log.Printf("invalid SESSION_REFRESH_EVERY, using %s", auth.DefaultRefreshEvery)
		refreshEvery = auth.DefaultRefreshEvery
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(getEnv("RESERVAS_URL", "http://localhost:8080"), nil)
	session, err := c.SignIn(ctx, os.Getenv("RESERVAS_EMAIL"), os.Getenv("RESERVAS_PASSWORD"))
	if err != nil {
		log.Fatalf("sign-in failed: %v", err)
	}

	keeper := auth.NewKeeper(c.Refresh, refreshEvery)
	defer c.Follow(keeper)()
	keeper.Start(ctx, session)
	defer keeper.Stop()

	cmd := os.Args[1]
	switch cmd {
	case "schedule":
		err = scheduleCmd(ctx, c, loc, os.Args[2:])
	case "attendance":
		err = attendanceCmd(ctx, c, loc, os.Args[2:])
	case "mark":
		err = markCmd(ctx, c, os.Args[2:])
	case "watch":
		err = watchCmd(ctx, c, loc, os.Args[2:])
	default:
		fmt.Println("unknown command:", cmd)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func printReservations(items []models.Reservation, loc *time.Location) {
	if len(items) == 0 {
		fmt.Println("  (no reservations)")
		return
	}
	for _, r := range items {
		extras := r.Extras()
		if extras == "" {
			extras = "-"
		}
		fmt.Printf("  #%d  %s - %s  %-24s %-28s x%d  %-12s %s\n",
			r.ReservationID,
			calendar.FormatLocal(r.StartAt, loc), r.EndAt.In(loc).Format("15:04"),
			r.StudentName, r.Email, r.PartySize, r.Attendance, extras)
	}
}

func rangeFlags(fs *flag.FlagSet, loc *time.Location) (*string, *string) {
	start, end := calendar.SchedulerWindow(time.Now(), loc)
	from := fs.String("from", calendar.FormatLocal(start, loc), "range start (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	to := fs.String("to", calendar.FormatLocal(end, loc), "range end, exclusive")
	return from, to
}

// scheduleCmd pages through a range; n and p step forward and back.
func scheduleCmd(ctx context.Context, c *client.Client, loc *time.Location, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	from, to := rangeFlags(fs, loc)
	size := fs.Int("size", 10, "page size")
	_ = fs.Parse(args)

	start, err := calendar.Parse(*from, loc)
	if err != nil {
		return err
	}
	end, err := calendar.Parse(*to, loc)
	if err != nil {
		return err
	}

	s := pager.NewScheduler(c, *size)
	if err := s.SetRange(ctx, start, end); err != nil {
		return err
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("Page %d\n", s.Page())
		printReservations(s.Items(), loc)
		if !s.HasNext() && !s.HasPrev() {
			return nil
		}
		fmt.Print("[n]ext, [p]rev, [q]uit: ")
		if !in.Scan() {
			return in.Err()
		}
		switch strings.TrimSpace(in.Text()) {
		case "n":
			err = s.Next(ctx)
		case "p":
			err = s.Prev(ctx)
		case "q":
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func attendanceCmd(ctx context.Context, c *client.Client, loc *time.Location, args []string) error {
	now := time.Now().In(loc)
	fs := flag.NewFlagSet("attendance", flag.ExitOnError)
	year := fs.Int("year", now.Year(), "year")
	month := fs.Int("month", int(now.Month()), "month (1-12)")
	search := fs.String("search", "", "filter by name or email")
	status := fs.String("status", "", "filter by attendance status")
	_ = fs.Parse(args)

	var want models.AttendanceStatus
	if *status != "" {
		st, err := models.ParseAttendance(*status)
		if err != nil {
			return err
		}
		want = st
	}

	view := pager.NewAttendance(c, pager.DefaultAttendancePageSize, loc)
	if err := view.SetMonth(ctx, *year, time.Month(*month)); err != nil {
		return err
	}
	for view.HasMore() {
		if err := view.LoadMore(ctx); err != nil {
			return err
		}
	}

	fmt.Printf("%04d-%02d\n", *year, *month)
	printReservations(view.Filter(*search, want), loc)
	return nil
}

func markCmd(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("mark", flag.ExitOnError)
	id := fs.Int64("id", 0, "reservation id")
	status := fs.String("status", "", "PENDING, ATTENDED or NOT_ATTENDED")
	_ = fs.Parse(args)

	if *id == 0 || *status == "" {
		return fmt.Errorf("id and status are required")
	}
	st, err := models.ParseAttendance(*status)
	if err != nil {
		return err
	}

	r, err := c.SetAttendance(ctx, *id, st)
	if err != nil {
		return err
	}
	fmt.Printf("Reservation #%d is now %s\n", r.ReservationID, r.Attendance)
	return nil
}

// watchCmd reloads the first page on an interval until interrupted. The
// keeper refreshes the token in the background meanwhile.
func watchCmd(ctx context.Context, c *client.Client, loc *time.Location, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	from, to := rangeFlags(fs, loc)
	every := fs.Duration("every", 30*time.Second, "reload interval")
	_ = fs.Parse(args)

	start, err := calendar.Parse(*from, loc)
	if err != nil {
		return err
	}
	end, err := calendar.Parse(*to, loc)
	if err != nil {
		return err
	}

	s := pager.NewScheduler(c, 10)
	if err := s.SetRange(ctx, start, end); err != nil {
		return err
	}
	if *every <= 0 {
		return fmt.Errorf("-every must be positive")
	}
	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		fmt.Printf("-- %s\n", time.Now().In(loc).Format("15:04:05"))
		printReservations(s.Items(), loc)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				log.Printf("[Watch] reload: %v", err)
			}
		}
	}
}
