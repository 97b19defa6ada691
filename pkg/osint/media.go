package osint

import (
	"context"
	"fmt"

	"osintgram/internal/downloader"
	"osintgram/pkg/metadata"
	"osintgram/pkg/report"
	"osintgram/pkg/storage"
)

func init() {
	register(Operation{Name: "photos", Description: "Download the target's photos", UsesLimit: true, run: (*Runner).photos})
	register(Operation{Name: "propic", Description: "Download the target's profile picture", AllowPrivate: true, run: (*Runner).profilePicture})
	register(Operation{Name: "stories", Description: "Download the target's current stories", run: (*Runner).stories})
}

func (r *Runner) photos(ctx context.Context, opts Options) error {
	res, err := r.feed(ctx, "photos")
	if err != nil {
		return err
	}

	username := r.target().Username
	var jobs []downloader.Job
collect:
	for _, rec := range res.Items {
		id, err := postID(rec)
		if err != nil {
			continue
		}
		urls := metadata.PhotoURLs(rec)
		for i, u := range urls {
			name := fmt.Sprintf("%s_%s.jpg", username, id)
			if len(urls) > 1 {
				name = fmt.Sprintf("%s_%s_%d.jpg", username, id, i+1)
			}
			jobs = append(jobs, downloader.Job{URL: u, Name: name})
			if opts.Limit > 0 && len(jobs) >= opts.Limit {
				break collect
			}
		}
	}

	return r.download(ctx, "photos", "photos", jobs, res.Truncated)
}

func (r *Runner) profilePicture(ctx context.Context, _ Options) error {
	target := r.target()

	url, ok := "", false
	info, err := r.client.UserInfo(ctx, target.ID)
	if err == nil {
		url, ok = metadata.ProfilePictureURL(info)
	}
	if !ok {
		url, ok = metadata.ProfilePictureURL(target.Profile)
	}

	var jobs []downloader.Job
	if ok {
		jobs = append(jobs, downloader.Job{URL: url, Name: target.Username + "_propic.jpg"})
	}
	return r.download(ctx, "propic", "profile pictures", jobs, false)
}

func (r *Runner) stories(ctx context.Context, _ Options) error {
	target := r.target()
	items, err := r.client.Stories(ctx, target.ID)
	if err != nil {
		return err
	}

	var jobs []downloader.Job
	for _, item := range items {
		url, ext, ok := metadata.StoryMedia(item)
		if !ok {
			continue
		}
		id := item.StringOr("pk", item.StringOr("id", ""))
		if id == "" {
			continue
		}
		jobs = append(jobs, downloader.Job{URL: url, Name: fmt.Sprintf("%s_%s.%s", target.Username, id, ext)})
	}
	return r.download(ctx, "stories", "stories", jobs, false)
}

// download saves jobs into the target's output directory and prints a
// one-line summary. Media operations never write report files.
func (r *Runner) download(ctx context.Context, operation, noun string, jobs []downloader.Job, truncated bool) error {
	export := r.export()
	media := report.ExportTarget{ToConsole: true, OutputDirectory: export.OutputDirectory, BaseFilename: export.BaseFilename}

	if len(jobs) == 0 {
		return r.reporter.Summary(report.Summary{Operation: operation, Empty: true, Truncated: truncated}, media)
	}

	store, err := storage.NewManager(export.OutputDirectory)
	if err != nil {
		return err
	}

	p := r.progress(noun)
	d := downloader.New(r.client, store, r.logger)
	d.Observer = p.Observe
	sum, err := d.Run(ctx, jobs)
	p.Done()
	if err != nil {
		return err
	}
	if sum.Truncated {
		r.throttled(operation, sum.Downloaded)
	}

	lines := []string{fmt.Sprintf("Downloaded %d %s in %s", sum.Downloaded, noun, store.Dir())}
	if sum.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("%d already present", sum.Skipped))
	}
	if sum.Failed > 0 {
		lines = append(lines, fmt.Sprintf("%d failed", sum.Failed))
	}

	return r.reporter.Summary(report.Summary{
		Operation: operation,
		Lines:     lines,
		Empty:     sum.Downloaded+sum.Skipped == 0 && sum.Failed == 0,
		Truncated: truncated || sum.Truncated,
	}, media)
}
