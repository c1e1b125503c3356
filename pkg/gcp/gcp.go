// Package gcp holds the credential and naming helpers shared by the Pub/Sub and BigQuery clients.
package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrProjectIDRequired is returned when no project is configured.
var ErrProjectIDRequired = errors.New("gcp project id is required")

// Collections used in fully qualified resource names.
const (
	CollectionTopics        = "topics"
	CollectionSubscriptions = "subscriptions"
)

// ProjectID returns the trimmed project id or ErrProjectIDRequired.
func ProjectID(cfg config.GCPConfig) (string, error) {
	id := strings.TrimSpace(cfg.ProjectID)
	if id == "" {
		return "", ErrProjectIDRequired
	}
	return id, nil
}

// ClientOptions picks inline JSON credentials over a credentials file.
// No options means Application Default Credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// ResourceName expands a short id into projects/<project>/<collection>/<id>.
// Ids that are already fully qualified for the collection pass through.
func ResourceName(project, collection, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+collection+"/") {
		return id
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, collection, id)
}

// IsNotFound reports a 404 from either the REST or the gRPC transports.
func IsNotFound(err error) bool {
	return hasCode(err, http.StatusNotFound, codes.NotFound)
}

// IsAlreadyExists reports a 409 from either transport.
func IsAlreadyExists(err error) bool {
	return hasCode(err, http.StatusConflict, codes.AlreadyExists)
}

func hasCode(err error, httpCode int, grpcCode codes.Code) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == httpCode
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == grpcCode
	}
	return false
}
