package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"userhub/internal/domain"
)

type uploadSnapshotRequest struct {
	Filename   string `json:"filename" binding:"required"`
	UploadedBy string `json:"uploaded_by"`
	Content    string `json:"content" binding:"required"`
}

type SnapshotFileResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	OriginalName    string  `json:"original_name"`
	UploadedBy      string  `json:"uploaded_by,omitempty"`
	Size            int64   `json:"size"`
	Status          string  `json:"status"`
	ArchiveLocation string  `json:"archive_location,omitempty"`
	UploadedAt      string  `json:"uploaded_at"`
	ProcessedAt     *string `json:"processed_at,omitempty"`
}

type ProcessingResultResponse struct {
	FileID          int64    `json:"file_id"`
	Status          string   `json:"status"`
	TopicsProcessed int      `json:"topics_processed"`
	TopicsCreated   int      `json:"topics_created"`
	TopicsUpdated   int      `json:"topics_updated"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
}

func snapshotToResponse(file domain.SnapshotFile) SnapshotFileResponse {
	resp := SnapshotFileResponse{
		ID:              file.ID,
		Name:            file.Name,
		OriginalName:    file.OriginalName,
		UploadedBy:      file.UploadedBy,
		Size:            file.Size,
		Status:          string(file.Status),
		ArchiveLocation: file.ArchiveLocation,
		UploadedAt:      file.UploadedAt.Format(time.RFC3339),
	}
	if file.ProcessedAt != nil {
		v := file.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &v
	}
	return resp
}

func (h *Handler) uploadSnapshot(c *gin.Context) {
	var req uploadSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	file, err := h.snapshots.Upload(c.Request.Context(), req.Filename, req.UploadedBy, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshotToResponse(*file))
}

func (h *Handler) processSnapshot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.snapshots.Process(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := ProcessingResultResponse{
		FileID:          result.FileID,
		Status:          string(result.Status),
		TopicsProcessed: result.TopicsProcessed,
		TopicsCreated:   result.TopicsCreated,
		TopicsUpdated:   result.TopicsUpdated,
		Errors:          result.Errors,
		Warnings:        result.Warnings,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listSnapshots(c *gin.Context) {
	skip, limit := pagination(c)

	files, err := h.snapshots.List(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]SnapshotFileResponse, len(files))
	for i := range files {
		resp[i] = snapshotToResponse(files[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getSnapshot(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	file, err := h.snapshots.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshotToResponse(*file))
}

type createComponentRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type ComponentResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func componentToResponse(component domain.Component) ComponentResponse {
	return ComponentResponse{
		ID:          component.ID,
		Name:        component.Name,
		Description: component.Description,
		Active:      component.Active,
		CreatedAt:   component.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   component.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createComponent(c *gin.Context) {
	var req createComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	component, err := h.catalog.CreateComponent(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, componentToResponse(*component))
}

func (h *Handler) listComponents(c *gin.Context) {
	skip, limit := pagination(c)

	components, err := h.catalog.ListComponents(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]ComponentResponse, len(components))
	for i := range components {
		resp[i] = componentToResponse(components[i])
	}
	c.JSON(http.StatusOK, resp)
}

type createInterfaceTypeRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type InterfaceTypeResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func (h *Handler) createInterfaceType(c *gin.Context) {
	var req createInterfaceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	it, err := h.catalog.CreateInterfaceType(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, InterfaceTypeResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		CreatedAt:   it.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) listInterfaceTypes(c *gin.Context) {
	skip, limit := pagination(c)

	types, err := h.catalog.ListInterfaceTypes(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]InterfaceTypeResponse, len(types))
	for i := range types {
		resp[i] = InterfaceTypeResponse{
			ID:          types[i].ID,
			Name:        types[i].Name,
			Description: types[i].Description,
			CreatedAt:   types[i].CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, resp)
}

type createInterfaceRequest struct {
	Name            string `json:"name" binding:"required,max=255"`
	Description     string `json:"description"`
	ComponentID     int64  `json:"component_id" binding:"required,min=1"`
	InterfaceTypeID int64  `json:"interface_type_id" binding:"required,min=1"`
}

type InterfaceResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ComponentID     int64  `json:"component_id"`
	InterfaceTypeID int64  `json:"interface_type_id"`
	Active          bool   `json:"is_active"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func interfaceToResponse(iface domain.Interface) InterfaceResponse {
	return InterfaceResponse{
		ID:              iface.ID,
		Name:            iface.Name,
		Description:     iface.Description,
		ComponentID:     iface.ComponentID,
		InterfaceTypeID: iface.InterfaceTypeID,
		Active:          iface.Active,
		CreatedAt:       iface.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       iface.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createInterface(c *gin.Context) {
	var req createInterfaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	iface, err := h.catalog.CreateInterface(c.Request.Context(), req.Name, req.Description, req.ComponentID, req.InterfaceTypeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, interfaceToResponse(*iface))
}

func (h *Handler) listInterfaces(c *gin.Context) {
	skip, limit := pagination(c)

	interfaces, err := h.catalog.ListInterfaces(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]InterfaceResponse, len(interfaces))
	for i := range interfaces {
		resp[i] = interfaceToResponse(interfaces[i])
	}
	c.JSON(http.StatusOK, resp)
}

type TopicResponse struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	FileID             int64   `json:"file_id"`
	InterfaceID        *int64  `json:"interface_id,omitempty"`
	Environment        string  `json:"environment,omitempty"`
	BridgedTopic       string  `json:"bridged_topic,omitempty"`
	AverageMessageSize float64 `json:"average_message_size"`
	MinimumMessageSize float64 `json:"minimum_message_size"`
	MaximumMessageSize float64 `json:"maximum_message_size"`
	EstimatedSize      float64 `json:"estimated_size"`
	LastMessageDate    *string `json:"last_message_date,omitempty"`
	LastStatRetrieval  *string `json:"last_stat_retrieval_date,omitempty"`
	MessagesLast30d    int64   `json:"messages_last_30d"`
	PartitionNumber    int     `json:"partition_number"`
	ReplicationFactor  int     `json:"replication_factor"`
	Retention          string  `json:"retention,omitempty"`
	TotalMessages      int64   `json:"total_messages"`
	CleanupPolicy      string  `json:"cleanup_policy,omitempty"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
	FirstSeen          string  `json:"first_seen"`
	LastSeen           string  `json:"last_seen"`
	Deprecated         bool    `json:"is_deprecated"`
	DeprecatedAt       *string `json:"deprecated_at,omitempty"`
}

type TopicDetailResponse struct {
	TopicResponse
	Producers        []string `json:"producers"`
	Consumers        []string `json:"consumers"`
	MissingProducers []string `json:"missing_producers"`
	MissingConsumers []string `json:"missing_consumers"`
}

func topicToResponse(topic domain.Topic) TopicResponse {
	resp := TopicResponse{
		ID:                 topic.ID,
		Name:               topic.Name,
		FileID:             topic.FileID,
		InterfaceID:        topic.InterfaceID,
		Environment:        topic.Environment,
		BridgedTopic:       topic.BridgedTopic,
		AverageMessageSize: topic.Stats.AverageMessageSize,
		MinimumMessageSize: topic.Stats.MinimumMessageSize,
		MaximumMessageSize: topic.Stats.MaximumMessageSize,
		EstimatedSize:      topic.Stats.EstimatedSize,
		MessagesLast30d:    topic.Stats.MessagesLast30d,
		PartitionNumber:    topic.Stats.PartitionNumber,
		ReplicationFactor:  topic.Stats.ReplicationFactor,
		Retention:          topic.Stats.Retention,
		TotalMessages:      topic.Stats.TotalMessages,
		CleanupPolicy:      topic.Stats.CleanupPolicy,
		CreatedAt:          topic.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          topic.UpdatedAt.Format(time.RFC3339),
		FirstSeen:          topic.FirstSeen.Format(time.RFC3339),
		LastSeen:           topic.LastSeen.Format(time.RFC3339),
		Deprecated:         topic.Deprecated,
	}
	if topic.Stats.LastMessageDate != nil {
		v := topic.Stats.LastMessageDate.Format(time.RFC3339)
		resp.LastMessageDate = &v
	}
	if topic.Stats.LastStatRetrieval != nil {
		v := topic.Stats.LastStatRetrieval.Format(time.RFC3339)
		resp.LastStatRetrieval = &v
	}
	if topic.DeprecatedAt != nil {
		v := topic.DeprecatedAt.Format(time.RFC3339)
		resp.DeprecatedAt = &v
	}
	return resp
}

func (h *Handler) listTopics(c *gin.Context) {
	skip, limit := pagination(c)
	environment := c.Query("environment")

	topics, err := h.topics.List(c.Request.Context(), environment, skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]TopicResponse, len(topics))
	for i := range topics {
		resp[i] = topicToResponse(topics[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getTopic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	topic, err := h.topics.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := TopicDetailResponse{
		TopicResponse:    topicToResponse(*topic),
		Producers:        emptyIfNil(topic.Producers),
		Consumers:        emptyIfNil(topic.Consumers),
		MissingProducers: emptyIfNil(topic.MissingProducers),
		MissingConsumers: emptyIfNil(topic.MissingConsumers),
	}
	c.JSON(http.StatusOK, resp)
}

type TopicHistoryResponse struct {
	ID        int64          `json:"id"`
	TopicID   int64          `json:"topic_id"`
	FileID    int64          `json:"file_id"`
	Action    string         `json:"action"`
	Changes   map[string]any `json:"changes"`
	CreatedAt string         `json:"created_at"`
}

func (h *Handler) listTopicHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	entries, err := h.topics.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]TopicHistoryResponse, len(entries))
	for i := range entries {
		resp[i] = TopicHistoryResponse{
			ID:        entries[i].ID,
			TopicID:   entries[i].TopicID,
			FileID:    entries[i].FileID,
			Action:    entries[i].Action,
			Changes:   entries[i].Changes,
			CreatedAt: entries[i].CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func emptyIfNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

type generateReportRequest struct {
	Type        int            `json:"report_type" binding:"required,min=1,max=10"`
	GeneratedBy string         `json:"generated_by"`
	Parameters  map[string]any `json:"parameters"`
}

type ReportResponse struct {
	ID              int64          `json:"id"`
	Type            int            `json:"report_type"`
	Name            string         `json:"report_name"`
	GeneratedAt     string         `json:"generated_at"`
	GeneratedBy     string         `json:"generated_by,omitempty"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	ResultsCount    int            `json:"results_count"`
	ArchiveLocation string         `json:"archive_location,omitempty"`
}

type ReportItemResponse struct {
	ID        int64          `json:"id"`
	ReportID  int64          `json:"report_id"`
	TopicID   *int64         `json:"topic_id,omitempty"`
	Data      map[string]any `json:"item_data"`
	CreatedAt string         `json:"created_at"`
}

func reportToResponse(report domain.Report) ReportResponse {
	return ReportResponse{
		ID:              report.ID,
		Type:            report.Type,
		Name:            report.Name,
		GeneratedAt:     report.GeneratedAt.Format(time.RFC3339),
		GeneratedBy:     report.GeneratedBy,
		Parameters:      report.Parameters,
		ResultsCount:    report.ResultsCount,
		ArchiveLocation: report.ArchiveLocation,
	}
}

func (h *Handler) generateReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	report, err := h.reports.Generate(c.Request.Context(), req.Type, req.GeneratedBy, req.Parameters)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reportToResponse(*report))
}

func (h *Handler) listReports(c *gin.Context) {
	skip, limit := pagination(c)

	reportType := 0
	if raw := c.Query("report_type"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			badRequest(c, "invalid report_type")
			return
		}
		reportType = v
	}

	reports, err := h.reports.List(c.Request.Context(), reportType, skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]ReportResponse, len(reports))
	for i := range reports {
		resp[i] = reportToResponse(reports[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportToResponse(*report))
}

func (h *Handler) listReportItems(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	items, err := h.reports.Items(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]ReportItemResponse, len(items))
	for i := range items {
		resp[i] = ReportItemResponse{
			ID:        items[i].ID,
			ReportID:  items[i].ReportID,
			TopicID:   items[i].TopicID,
			Data:      items[i].Data,
			CreatedAt: items[i].CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, resp)
}

type idProbeRequest struct {
	Entity string `json:"entity" binding:"required"`
	ID     int64  `json:"id" binding:"required,min=1"`
}

type IDProbeResponse struct {
	Entity      string `json:"entity"`
	RequestedID int64  `json:"requested_id"`
	AvailableID int64  `json:"available_id"`
	IsAvailable bool   `json:"is_available"`
}

func (h *Handler) nextAvailableID(c *gin.Context) {
	var req idProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	probe, err := h.reports.NextAvailableID(c.Request.Context(), req.Entity, req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, IDProbeResponse{
		Entity:      probe.Entity,
		RequestedID: probe.RequestedID,
		AvailableID: probe.AvailableID,
		IsAvailable: probe.IsAvailable,
	})
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func (h *Handler) listArchiveObjects(c *gin.Context) {
	if h.archive == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "archive storage not configured"})
		return
	}

	objects, err := h.archive.ListObjects(c.Request.Context(), h.bucket, c.Query("prefix"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = StorageObjectResponse{
			Key:  objects[i].Key,
			Size: objects[i].Size,
		}
		if objects[i].LastModified != nil && !objects[i].LastModified.IsZero() {
			v := objects[i].LastModified.Format(time.RFC3339)
			resp[i].LastModified = &v
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) deleteArchiveObjects(c *gin.Context) {
	if h.archive == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "archive storage not configured"})
		return
	}

	prefix := strings.TrimSpace(c.Query("prefix"))
	if prefix == "" {
		badRequest(c, "prefix is required")
		return
	}

	if err := h.archive.DeletePrefix(c.Request.Context(), h.bucket, prefix); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "objects under " + prefix + " deleted"})
}
