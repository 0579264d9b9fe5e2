package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/alertium/alertium/util"
)

// Client fetches the global badge catalog from the Twitch Helix API. It is
// stateless: every call returns the full current list.
type Client struct {
	Host        string
	ClientID    string
	AccessToken string
	Client      *http.Client
}

func NewClient(clientID, accessToken string) *Client {
	return &Client{
		Host:        "https://api.twitch.tv",
		ClientID:    clientID,
		AccessToken: accessToken,
		Client:      util.RobustHTTPClient(),
	}
}

type helixBadgeVersion struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL1x  string `json:"image_url_1x"`
	ImageURL2x  string `json:"image_url_2x"`
	ImageURL4x  string `json:"image_url_4x"`
}

type helixBadgeSet struct {
	SetID    string              `json:"set_id"`
	Versions []helixBadgeVersion `json:"versions"`
}

type helixBadgeResponse struct {
	Data []helixBadgeSet `json:"data"`
}

// FetchGlobal returns every global badge set/version pair as a flat list of
// canonical Badge records, in the order the API returned them.
//
// Callers must treat an error as "no information", not an empty catalog, and
// skip diffing for that cycle.
func (c *Client) FetchGlobal(ctx context.Context) ([]Badge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Host+"/helix/chat/badges/global", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-ID", c.ClientID)
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("helix badge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("helix badge request failed. status=%d", resp.StatusCode)
	}

	var body helixBadgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing helix badge response: %w", err)
	}

	var out []Badge
	for _, set := range body.Data {
		setID := set.SetID
		if setID == "" {
			setID = "unknown"
		}
		for _, version := range set.Versions {
			versionID := version.ID
			if versionID == "" {
				versionID = "unknown"
			}
			name := version.Title
			if name == "" {
				name = version.Description
			}
			if name == "" {
				name = "Unnamed Badge"
			}
			// prefer the highest-resolution image variant available
			image := version.ImageURL4x
			if image == "" {
				image = version.ImageURL2x
			}
			if image == "" {
				image = version.ImageURL1x
			}
			out = append(out, Badge{
				ID:       setID + ":" + versionID,
				Name:     name,
				Kind:     KindGlobal,
				ImageURL: image,
			})
		}
	}
	return out, nil
}
