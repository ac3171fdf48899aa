package urlcheck

import (
	"context"
	"net/url"
	"strings"

	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
)

// Validator checks completion links. Links on a known video host are
// rewritten to that host's canonical form; other hosts are rejected only
// when RequireKnownProvider is set.
type Validator struct {
	RequireKnownProvider bool
}

func (v Validator) Validate(_ context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", domainerrors.ErrInvalidSubmissionURL
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", domainerrors.ErrInvalidSubmissionURL
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" || !strings.Contains(host, ".") {
		return "", domainerrors.ErrInvalidSubmissionURL
	}

	segments := splitPathSegments(parsed.Path)
	if resolve, ok := providerFor(host); ok {
		canonical, err := resolve(host, segments, parsed.Query())
		if err != nil {
			return "", err
		}
		return canonical, nil
	}
	if v.RequireKnownProvider {
		return "", domainerrors.ErrUnsupportedProvider
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	return parsed.String(), nil
}

type resolver func(host string, segments []string, query url.Values) (string, error)

func providerFor(host string) (resolver, bool) {
	switch {
	case host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		return parseYouTube, true
	case host == "twitch.tv" || strings.HasSuffix(host, ".twitch.tv"):
		return parseTwitch, true
	case host == "bilibili.com" || strings.HasSuffix(host, ".bilibili.com") || host == "b23.tv":
		return parseBilibili, true
	case host == "drive.google.com":
		return parseGoogleDrive, true
	case host == "medal.tv":
		return parseMedal, true
	case host == "streamable.com":
		return parseStreamable, true
	case host == "outplayed.tv":
		return parseOutplayed, true
	default:
		return nil, false
	}
}

func parseYouTube(host string, segments []string, query url.Values) (string, error) {
	videoID := ""
	switch {
	case host == "youtu.be" && len(segments) >= 1:
		videoID = segments[0]
	case strings.TrimSpace(query.Get("v")) != "":
		videoID = strings.TrimSpace(query.Get("v"))
	case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "live" || segments[0] == "embed"):
		videoID = segments[1]
	}
	if videoID == "" {
		return "", domainerrors.ErrInvalidSubmissionURL
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID), nil
}

func parseTwitch(host string, segments []string, _ url.Values) (string, error) {
	if host == "clips.twitch.tv" && len(segments) >= 1 {
		return "https://clips.twitch.tv/" + segments[0], nil
	}
	if len(segments) >= 2 && segments[0] == "videos" {
		return "https://www.twitch.tv/videos/" + segments[1], nil
	}
	if len(segments) >= 3 && segments[1] == "clip" {
		return "https://clips.twitch.tv/" + segments[2], nil
	}
	return "", domainerrors.ErrInvalidSubmissionURL
}

func parseBilibili(host string, segments []string, _ url.Values) (string, error) {
	if host == "b23.tv" && len(segments) >= 1 {
		return "https://b23.tv/" + segments[0], nil
	}
	if len(segments) >= 2 && segments[0] == "video" {
		return "https://www.bilibili.com/video/" + segments[1], nil
	}
	return "", domainerrors.ErrInvalidSubmissionURL
}

func parseGoogleDrive(_ string, segments []string, query url.Values) (string, error) {
	if len(segments) >= 3 && segments[0] == "file" && segments[1] == "d" {
		return "https://drive.google.com/file/d/" + segments[2] + "/view", nil
	}
	if len(segments) >= 3 && segments[0] == "drive" && segments[1] == "folders" {
		return "https://drive.google.com/drive/folders/" + segments[2], nil
	}
	if id := strings.TrimSpace(query.Get("id")); id != "" {
		return "https://drive.google.com/file/d/" + url.PathEscape(id) + "/view", nil
	}
	return "", domainerrors.ErrInvalidSubmissionURL
}

func parseMedal(_ string, segments []string, _ url.Values) (string, error) {
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == "clips" {
			return "https://medal.tv/clips/" + segments[i+1], nil
		}
	}
	return "", domainerrors.ErrInvalidSubmissionURL
}

func parseStreamable(_ string, segments []string, _ url.Values) (string, error) {
	if len(segments) == 1 {
		return "https://streamable.com/" + segments[0], nil
	}
	if len(segments) == 2 && (segments[0] == "e" || segments[0] == "o") {
		return "https://streamable.com/" + segments[1], nil
	}
	return "", domainerrors.ErrInvalidSubmissionURL
}

func parseOutplayed(_ string, segments []string, _ url.Values) (string, error) {
	if len(segments) >= 2 {
		return "https://outplayed.tv/" + segments[0] + "/" + segments[1], nil
	}
	return "", domainerrors.ErrInvalidSubmissionURL
}

func splitPathSegments(rawPath string) []string {
	parts := strings.Split(strings.Trim(strings.TrimSpace(rawPath), "/"), "/")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
