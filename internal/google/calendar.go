// Package google implements the external calendar collaborator on top of
// the Google Calendar API.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"hopelink/internal/calsync"
	"hopelink/internal/models"
)

const (
	credentialsFile = "credentials.json"

	// summaryPrefix marks events mirrored from HopeLink so they are easy to
	// spot next to the caregiver's own entries.
	summaryPrefix = "[HopeLink] "
)

// CalendarClient provides a client for interacting with the Google Calendar
// API. It implements calsync.CalendarService.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
	timezone   string
}

var _ calsync.CalendarService = (*CalendarClient)(nil)

// NewClient creates a new Google Calendar client. It loads the OAuth token
// saved by the 'auth' command and sets up an authenticated HTTP client.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, tokenFile, calendarID, timezone string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token from %s: %w. Please run the 'auth' command first", tokenFile, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}

	return &CalendarClient{service: service, logger: logger, calendarID: calendarID, timezone: timezone}, nil
}

// CreateEvent mirrors the appointment into the calendar and returns the new
// event id.
func (c *CalendarClient) CreateEvent(ctx context.Context, appt *models.Appointment) (string, error) {
	created, err := c.service.Events.Insert(c.calendarID, c.toEvent(appt, true)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	c.logger.Debug("Inserted Google Calendar event", "eventID", created.Id, "title", appt.Title)
	return created.Id, nil
}

// UpdateEvent rewrites the mirrored event in place.
func (c *CalendarClient) UpdateEvent(ctx context.Context, externalID string, appt *models.Appointment) error {
	if _, err := c.service.Events.Update(c.calendarID, externalID, c.toEvent(appt, false)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update event %s: %w", externalID, err)
	}
	return nil
}

// DeleteEvent removes the mirrored event from the calendar.
func (c *CalendarClient) DeleteEvent(ctx context.Context, externalID string) error {
	if err := c.service.Events.Delete(c.calendarID, externalID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", externalID, err)
	}
	return nil
}

// toEvent converts an appointment to the Google Calendar event body. New
// events get popup reminders a day and an hour ahead; updates leave the
// caregiver's reminder settings alone.
func (c *CalendarClient) toEvent(appt *models.Appointment, withReminders bool) *calendar.Event {
	event := &calendar.Event{
		Summary:     summaryPrefix + appt.Title,
		Description: calsync.RenderDescription(appt),
		Start: &calendar.EventDateTime{
			DateTime: appt.Start.Format(time.RFC3339),
			TimeZone: c.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: appt.End.Format(time.RFC3339),
			TimeZone: c.timezone,
		},
	}

	if appt.LocationAddress != "" {
		event.Location = appt.LocationAddress
	}

	if withReminders {
		event.Reminders = &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: 1440},
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		}
	}

	return event
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config
// for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(context.Background(), authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
