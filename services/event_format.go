package services

import (
	"fmt"

	"livescore-client/models"
)

var eventIcons = map[models.EventType]string{
	models.EventTypeGoal:         "⚽",
	models.EventTypeCard:         "🟨",
	models.EventTypeRedCard:      "🟥",
	models.EventTypeSubstitution: "🔄",
	models.EventTypeMatchStatus:  "⏱️",
}

var eventClasses = map[models.EventType]string{
	models.EventTypeGoal:         "event-goal",
	models.EventTypeCard:         "event-card",
	models.EventTypeRedCard:      "event-red-card",
	models.EventTypeSubstitution: "event-sub",
	models.EventTypeMatchStatus:  "event-status",
}

var statusDescriptions = map[string]string{
	models.StatusFirstHalfStart:  "⏱️ Comenzó el primer tiempo",
	models.StatusHalfTime:        "☕ Medio tiempo",
	models.StatusSecondHalfStart: "⏱️ Comenzó el segundo tiempo",
	models.StatusFullTime:        "🏁 Partido finalizado",
}

// EventIcon returns the feed icon for an event type.
func EventIcon(t models.EventType) string {
	if icon, ok := eventIcons[t]; ok {
		return icon
	}
	return "📋"
}

// EventClass returns the style class for an event type.
func EventClass(t models.EventType) string {
	if class, ok := eventClasses[t]; ok {
		return class
	}
	return "event-default"
}

// StatusDescription describes a match_status code; unknown codes are returned as is.
func StatusDescription(status string) string {
	if d, ok := statusDescriptions[status]; ok {
		return d
	}
	return status
}

// EventDescription renders the feed line for an event.
func EventDescription(e models.MatchEvent) string {
	d := e.Data
	switch e.EventType {
	case models.EventTypeGoal:
		return fmt.Sprintf("¡GOL de %s!", orDefault(d.Player, "Jugador"))
	case models.EventTypeCard, models.EventTypeRedCard:
		cardType := orDefault(d.CardType, "amarilla")
		if e.EventType == models.EventTypeRedCard && d.CardType == nil {
			cardType = "roja"
		}
		return fmt.Sprintf("Tarjeta %s para %s", cardType, orDefault(d.Player, "Jugador"))
	case models.EventTypeSubstitution:
		return fmt.Sprintf("Sale: %s | Entra: %s", models.String(d.PlayerOut), models.String(d.PlayerIn))
	case models.EventTypeMatchStatus:
		return StatusDescription(models.String(d.Status))
	default:
		return string(e.EventType)
	}
}

func orDefault(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}
