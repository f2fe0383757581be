// Command admin posts one live event to the events API, the way the admin
// dashboard does.
//
//	admin goal --match 2 --team Peru --player "Paolo Guerrero" --minute 23 --home 1
//	admin match-status --match 2 --status half_time
//	admin history
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/itbasis/go-clock"
	"github.com/spf13/pflag"

	"livescore-client/config"
	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/services"
	"livescore-client/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(args []string) error {
	cfg := config.Load()

	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: admin <goal|card|substitution|match-status|history|players|matches> [flags]")
	}
	command := args[0]

	form := services.DefaultEventForm()
	var (
		matchID      string
		email        string
		password     string
		clearHistory bool
	)
	flags := pflag.NewFlagSet("admin "+command, pflag.ContinueOnError)
	flags.StringVar(&matchID, "match", form.MatchID, "match id")
	flags.StringVar(&form.Team, "team", "", "team (default: home team of the match)")
	flags.StringVar(&form.Player, "player", "", "player")
	flags.IntVar(&form.Minute, "minute", 0, "match minute")
	flags.StringVar(&form.CardType, "card", "yellow", "card type: yellow or red")
	flags.StringVar(&form.PlayerOut, "out", "", "player leaving the pitch")
	flags.StringVar(&form.PlayerIn, "in", "", "player entering the pitch")
	flags.StringVar(&form.Status, "status", "", "match status code")
	flags.IntVar(&form.Score.Home, "home", 0, "home score after the goal")
	flags.IntVar(&form.Score.Away, "away", 0, "away score after the goal")
	flags.StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "admin login email")
	flags.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "admin login password")
	flags.BoolVar(&clearHistory, "clear", false, "with history: clear the audit trail")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	team := form.Team
	form = form.WithMatch(matchID)
	form.MatchID = matchID
	if team != "" {
		form.Team = team
	}

	local, release, err := storage.Open(cfg.StoreBackend, cfg.StorePath, cfg.DatabaseURL, "admin")
	if err != nil {
		return err
	}
	defer release()
	store := storage.NewService(local, nil)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	clk := clock.New()
	auth := services.NewAuthService(cfg.APIBaseURL, httpClient, store, clk)
	admin := services.NewAdminService(cfg.EventsAPIURL, httpClient, store, clk, nil, auth.GetToken)

	ctx := context.Background()

	switch command {
	case "history":
		if clearHistory {
			admin.ClearHistory(func(string) bool { return true })
			fmt.Println("Historial limpiado")
			return nil
		}
		for _, e := range admin.History() {
			fmt.Printf("%s  %-13s %s\n", e.Timestamp, e.Type, e.Payload)
		}
		return nil

	case "players":
		for _, p := range services.PlayersForTeam(form.Team) {
			fmt.Printf("%3d  %s\n", services.PlayerID(p), p)
		}
		return nil

	case "matches":
		for _, m := range services.MatchOptions() {
			fmt.Printf("%s  %s\n", m.ID, m.Label)
		}
		return nil
	}

	if email != "" && !auth.IsAdmin() {
		if _, err := auth.AdminLogin(ctx, models.LoginRequest{Email: email, Password: password}); err != nil {
			return fmt.Errorf("admin login failed: %w", err)
		}
	}

	resp, err := admin.Send(ctx, command, form)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s enviado para el partido %s\n", services.TeamFlag(form.Team), command, form.MatchID)
	var pretty interface{}
	if json.Unmarshal(resp, &pretty) == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
	}
	return nil
}
