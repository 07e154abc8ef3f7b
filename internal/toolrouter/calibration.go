package toolrouter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bobmcallan/lancet/internal/mcperr"
	"github.com/bobmcallan/lancet/internal/models"
)

// calibrationTag encodes a (source, version) pair as a single CalibrationVersion.Tag.
func calibrationTag(source string, version int) string {
	return fmt.Sprintf("%s:v%d", source, version)
}

// splitCalibrationTag recovers (source, version) from a stored tag; returns
// version 0 if the tag does not carry the "source:vN" shape (pre-versioning data).
func splitCalibrationTag(tag string) (source string, version int) {
	idx := strings.LastIndex(tag, ":v")
	if idx < 0 {
		return tag, 0
	}
	v, err := strconv.Atoi(tag[idx+2:])
	if err != nil {
		return tag, 0
	}
	return tag[:idx], v
}

func (r *Router) calibrationMetrics(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	action := stringArg(args, "action")
	switch action {
	case "get_stats":
		return r.calibrationStats(ctx, args)
	case "get_evaluations":
		return r.calibrationEvaluations(ctx, args)
	default:
		return nil, mcperr.InvalidParamsf("calibration_metrics action must be one of get_stats|get_evaluations, got %q", action)
	}
}

func (r *Router) calibrationStats(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	source := stringArg(args, "source")
	versions, err := r.store.Calibration().List(ctx)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list calibration versions: %w", err))
	}

	var matched []*models.CalibrationVersion
	for _, v := range versions {
		vSource, _ := splitCalibrationTag(v.Tag)
		if source == "" || vSource == source {
			matched = append(matched, v)
		}
	}

	return map[string]any{"versions": matched}, nil
}

func (r *Router) calibrationEvaluations(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	limit := intArg(args, "limit", 20)
	active, err := r.store.Calibration().Active(ctx)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to load active calibration: %w", err))
	}
	if active == nil {
		return map[string]any{"evaluations": []any{}}, nil
	}

	claims, err := r.store.Materials().ListClaims(ctx, "", true)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list claims for evaluation: %w", err))
	}

	var evaluated []*models.Claim
	for _, c := range claims {
		if c.CalibrationTag == active.Tag {
			evaluated = append(evaluated, c)
			if len(evaluated) >= limit {
				break
			}
		}
	}

	return map[string]any{"active_tag": active.Tag, "evaluations": evaluated}, nil
}

func (r *Router) calibrationRollback(ctx context.Context, args map[string]any) (map[string]any, *mcperr.Error) {
	source := stringArg(args, "source")
	if source == "" {
		return nil, mcperr.InvalidParamsf("source must be a non-empty string")
	}
	reason := stringArg(args, "reason")

	versions, err := r.store.Calibration().List(ctx)
	if err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to list calibration versions: %w", err))
	}

	bySource := map[int]*models.CalibrationVersion{}
	var current *models.CalibrationVersion
	for _, v := range versions {
		vSource, vVersion := splitCalibrationTag(v.Tag)
		if vSource != source {
			continue
		}
		bySource[vVersion] = v
		if current == nil || vVersion > func() int { _, cv := splitCalibrationTag(current.Tag); return cv }() {
			current = v
		}
	}
	if len(bySource) == 0 {
		return nil, mcperr.CalibrationErrorErr(fmt.Sprintf("no calibration history for source %q", source))
	}

	_, currentVersion := splitCalibrationTag(current.Tag)

	target := intArg(args, "version", currentVersion-1)
	if _, ok := bySource[target]; !ok {
		return nil, mcperr.CalibrationErrorErr(fmt.Sprintf("no previous version for source %q", source))
	}
	if target == currentVersion {
		return nil, mcperr.CalibrationErrorErr(fmt.Sprintf("version %d is already current for source %q", target, source))
	}

	rolledBackTag := calibrationTag(source, target)
	if err := r.store.Calibration().SetActive(ctx, rolledBackTag); err != nil {
		return nil, mcperr.InternalErr(fmt.Errorf("failed to roll back calibration: %w", err))
	}

	targetVersion := bySource[target]
	return map[string]any{
		"source":          source,
		"rolled_back_to":  target,
		"previous_version": currentVersion,
		"brier_after":     targetVersion.BrierScore,
		"method":          "pointer_swap",
		"reason":          reason,
	}, nil
}
