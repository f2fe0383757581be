package services

// DefaultPlayerID is used for players without a registered id.
const DefaultPlayerID = 100

// Teams selectable on the dashboard.
var Teams = []string{"Peru", "Argentina", "Brasil", "Francia", "Espana", "Alemania", "Inglaterra", "Mexico"}

// CardTypes selectable for card events.
var CardTypes = []string{"yellow", "red"}

// MatchStatuses selectable for match-status events.
var MatchStatuses = []string{"first_half_start", "half_time", "second_half_start", "full_time"}

// MatchOption is a match the operator can target.
type MatchOption struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
}

var matchOptions = []MatchOption{
	{ID: "1", Label: "🇦🇷 Argentina vs Brasil 🇧🇷", HomeTeam: "Argentina", AwayTeam: "Brasil"},
	{ID: "2", Label: "🇵🇪 Perú vs Argentina 🇦🇷", HomeTeam: "Peru", AwayTeam: "Argentina"},
	{ID: "3", Label: "🇧🇷 Brasil vs Francia 🇫🇷", HomeTeam: "Brasil", AwayTeam: "Francia"},
	{ID: "4", Label: "🇪🇸 España vs Alemania 🇩🇪", HomeTeam: "Espana", AwayTeam: "Alemania"},
	{ID: "5", Label: "🏴󠁧󠁢󠁥󠁮󠁧󠁿 Inglaterra vs México 🇲🇽", HomeTeam: "Inglaterra", AwayTeam: "Mexico"},
}

var rosters = map[string][]string{
	"Peru": {
		"Paolo Guerrero", "Gianluca Lapadula", "André Carrillo",
		"Edison Flores", "Christian Cueva", "Renato Tapia",
		"Sergio Peña", "Pedro Gallese", "Luis Advíncula",
	},
	"Argentina": {
		"Lionel Messi", "Julián Álvarez", "Ángel Di María",
		"Rodrigo De Paul", "Emiliano Martínez",
	},
	"Brasil": {
		"Neymar Jr", "Vinícius Júnior", "Richarlison",
		"Casemiro", "Alisson Becker", "Marquinhos",
		"Rodrygo", "Gabriel Jesus",
	},
	"Francia": {
		"Kylian Mbappé", "Antoine Griezmann", "Karim Benzema",
		"Ousmane Dembélé", "Hugo Lloris", "N'Golo Kanté",
		"Paul Pogba", "Raphaël Varane",
	},
	"Espana": {
		"Álvaro Morata", "Ferran Torres", "Pedri",
		"Gavi", "Sergio Busquets", "Unai Simón",
		"Dani Olmo", "Marco Asensio",
	},
	"Alemania": {
		"Thomas Müller", "Kai Havertz", "Serge Gnabry",
		"Joshua Kimmich", "Manuel Neuer", "Antonio Rüdiger",
		"Jamal Musiala", "Leroy Sané",
	},
	"Inglaterra": {
		"Harry Kane", "Raheem Sterling", "Phil Foden",
		"Bukayo Saka", "Jordan Pickford", "Harry Maguire",
		"Declan Rice", "Jack Grealish",
	},
	"Mexico": {
		"Hirving Lozano", "Raúl Jiménez", "Alexis Vega",
		"Guillermo Ochoa", "Edson Álvarez", "Héctor Herrera",
		"Jesús Corona", "Diego Lainez",
	},
}

var playerIDs = map[string]int{
	// Perú
	"Paolo Guerrero":    27,
	"Gianluca Lapadula": 26,
	"André Carrillo":    28,
	"Edison Flores":     29,
	"Christian Cueva":   30,

	// Argentina
	"Lionel Messi":      1,
	"Ángel Di María":    2,
	"Rodrigo De Paul":   3,
	"Julián Álvarez":    4,
	"Emiliano Martínez": 5,

	// Brasil
	"Neymar Jr":       10,
	"Vinícius Júnior": 11,
	"Richarlison":     12,
	"Casemiro":        13,
	"Alisson Becker":  14,

	// Francia
	"Kylian Mbappé":     20,
	"Antoine Griezmann": 21,
	"Karim Benzema":     22,
	"Hugo Lloris":       23,

	// España
	"Álvaro Morata": 31,
	"Ferran Torres": 32,
	"Pedri":         33,

	// Alemania
	"Thomas Müller": 40,
	"Kai Havertz":   41,
	"Manuel Neuer":  42,

	// Inglaterra
	"Harry Kane":      50,
	"Raheem Sterling": 51,

	// México
	"Hirving Lozano": 60,
	"Raúl Jiménez":   61,
}

var teamFlags = map[string]string{
	"Peru":       "🇵🇪",
	"Argentina":  "🇦🇷",
	"Brasil":     "🇧🇷",
	"Francia":    "🇫🇷",
	"Espana":     "🇪🇸",
	"Alemania":   "🇩🇪",
	"Inglaterra": "🏴󠁧󠁢󠁥󠁮󠁧󠁿",
	"Mexico":     "🇲🇽",
}

// PlayersForTeam returns the roster of team, or nil for an unknown team.
func PlayersForTeam(team string) []string {
	return append([]string(nil), rosters[team]...)
}

// PlayerID returns the registered id of a player, DefaultPlayerID otherwise.
func PlayerID(name string) int {
	if id, ok := playerIDs[name]; ok {
		return id
	}
	return DefaultPlayerID
}

// TeamID returns 3 for Peru and 1 for any other team.
func TeamID(team string) int {
	if team == "Peru" {
		return 3
	}
	return 1
}

// TeamFlag returns the flag emoji of team, a white flag when unknown.
func TeamFlag(team string) string {
	if flag, ok := teamFlags[team]; ok {
		return flag
	}
	return "🏳️"
}

// MatchOptions lists the matches the dashboard can target.
func MatchOptions() []MatchOption {
	return append([]MatchOption(nil), matchOptions...)
}

// FindMatchOption returns the option with id.
func FindMatchOption(id string) (MatchOption, bool) {
	for _, m := range matchOptions {
		if m.ID == id {
			return m, true
		}
	}
	return MatchOption{}, false
}
