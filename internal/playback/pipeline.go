package playback

import (
	"context"
	"errors"

	"danmaku/internal/config"
	"danmaku/internal/dandanplay"
	"danmaku/internal/logging"
	"danmaku/internal/overlay"
	"danmaku/internal/player"
	"danmaku/internal/services"
)

const (
	stageFingerprint = "fingerprint"
	stageMatch       = "match"
	stageComments    = "comments"
	stageRender      = "render"
	stagePersist     = "persist"
	stageDeliver     = "deliver"
)

var errNotPlaying = errors.New("player is not playing video")

// checkpoint enters stage, failing with ErrCancelled once the run is superseded.
func checkpoint(ctx context.Context, r *run, stage string) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		return ctx, services.Wrap(services.ErrCancelled, stage, "checkpoint", "run superseded", err)
	}
	r.setStage(stage)
	return services.WithStage(ctx, stage), nil
}

func (o *Orchestrator) pipeline(ctx context.Context, r *run, event player.Event, cfg config.Config) (Result, error) {
	var result Result

	stageCtx, err := checkpoint(ctx, r, stageFingerprint)
	if err != nil {
		return result, err
	}
	if !o.host.IsPlayingVideo(stageCtx) {
		return result, services.Wrap(services.ErrCancelled, stageFingerprint, "player", "nothing to overlay", errNotPlaying)
	}
	identity, err := o.fingerprint(stageCtx, event.Path)
	if err != nil {
		return result, err
	}
	logging.WithContext(stageCtx, o.logger).Debug("media identified",
		logging.String("name", identity.Name),
		logging.Bool("hashed", identity.HasHash()),
	)

	stageCtx, err = checkpoint(ctx, r, stageMatch)
	if err != nil {
		return result, err
	}
	match, ok := o.matcher.Match(stageCtx, dandanplay.MatchQuery{
		FileName: identity.Name,
		Size:     identity.Size,
		Hash:     identity.Hash,
		Duration: event.Duration,
	})
	if ctx.Err() != nil {
		return result, services.Wrap(services.ErrCancelled, stageMatch, "match", "run superseded", ctx.Err())
	}
	if !ok {
		return result, services.Wrap(services.ErrNoMatch, stageMatch, "match", "no episode for "+identity.Name, nil)
	}
	result.EpisodeID = match.EpisodeID
	result.Episode = match.Label()

	stageCtx, err = checkpoint(ctx, r, stageComments)
	if err != nil {
		return result, err
	}
	raws, err := o.matcher.Comments(stageCtx, match.EpisodeID, nil)
	if ctx.Err() != nil {
		return result, services.Wrap(services.ErrCancelled, stageComments, "comments", "run superseded", ctx.Err())
	}
	if err != nil {
		return result, err
	}

	if _, err = checkpoint(ctx, r, stageRender); err != nil {
		return result, err
	}
	doc := overlay.NewCompositor(overlay.LayoutFromConfig(cfg.Overlay)).Build(raws, match.Shift)
	result.Comments = doc.Len()

	if _, err = checkpoint(ctx, r, stagePersist); err != nil {
		return result, err
	}
	artifact, err := overlay.WriteArtifact(cfg.Paths.ProfileDir, event.Path, doc)
	if err != nil {
		return result, err
	}
	result.Artifact = artifact

	stageCtx, err = checkpoint(ctx, r, stageDeliver)
	if err != nil {
		return result, err
	}
	if !o.host.IsPlayingVideo(stageCtx) {
		return result, services.Wrap(services.ErrCancelled, stageDeliver, "player", "playback ended before delivery", errNotPlaying)
	}
	if err := o.host.DeliverSubtitle(stageCtx, artifact); err != nil {
		return result, err
	}
	return result, nil
}
