// Package caldav implements the external calendar collaborator against a
// CalDAV server such as iCloud.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"hopelink/internal/calsync"
	"hopelink/internal/models"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "hopelink/1.0")
	return t.Transport.RoundTrip(req)
}

// Client is a CalDAV-backed calendar collaborator. Event identity is the
// iCalendar UID, which doubles as the external id stored on appointments.
type Client struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarURL  string
}

var _ calsync.CalendarService = (*Client)(nil)

// NewClient creates and initializes a new CalDAV client, discovering the
// named calendar under the user's calendar home set.
func NewClient(logger *slog.Logger, endpoint, username, password, calendarName string) (*Client, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Successfully found CalDAV calendar", "url", calendarURL)

	return c, nil
}

// CreateEvent writes a new VEVENT for the appointment and returns its UID.
func (c *Client) CreateEvent(ctx context.Context, appt *models.Appointment) (string, error) {
	uid := uuid.New().String()
	if err := c.putEvent(ctx, uid, appt); err != nil {
		return "", err
	}
	c.logger.Info("Created event on CalDAV server", "title", appt.Title, "uid", uid)
	return uid, nil
}

// UpdateEvent overwrites the VEVENT stored under the given UID.
func (c *Client) UpdateEvent(ctx context.Context, externalID string, appt *models.Appointment) error {
	if err := c.putEvent(ctx, externalID, appt); err != nil {
		return err
	}
	c.logger.Info("Updated event on CalDAV server", "title", appt.Title, "uid", externalID)
	return nil
}

// DeleteEvent removes the VEVENT stored under the given UID.
func (c *Client) DeleteEvent(ctx context.Context, externalID string) error {
	if err := c.webdavClient.RemoveAll(ctx, c.eventPath(externalID)); err != nil {
		return fmt.Errorf("failed to delete event from CalDAV server: %w", err)
	}
	return nil
}

// putEvent uploads the appointment as a single-event calendar object. CalDAV
// treats a PUT to an existing path as a replace, so create and update share
// this code.
func (c *Client) putEvent(ctx context.Context, uid string, appt *models.Appointment) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//hopelink//EN")
	cal.Children = append(cal.Children, c.toICal(uid, appt))

	writer, err := c.webdavClient.Create(ctx, c.eventPath(uid))
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	return nil
}

// eventPath returns the event resource path relative to the endpoint, as the
// webdav client expects.
func (c *Client) eventPath(uid string) string {
	return path.Join(strings.TrimPrefix(c.calendarURL, c.endpoint), fmt.Sprintf("%s.ics", uid))
}

// toICal converts an appointment to an ical.Component (VEVENT).
func (c *Client) toICal(uid string, appt *models.Appointment) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, appt.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, appt.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, appt.End)
	ve.Props.SetText(ical.PropDescription, calsync.RenderDescription(appt))

	if appt.LocationAddress != "" {
		ve.Props.SetText(ical.PropLocation, appt.LocationAddress)
	} else if appt.LocationName != "" {
		ve.Props.SetText(ical.PropLocation, appt.LocationName)
	}
	return ve
}

// findCalendar discovers the user's calendars and returns the URL for the
// one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return fmt.Sprintf("%s%s", strings.TrimSuffix(c.endpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
