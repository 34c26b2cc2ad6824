package seed

import (
	"context"
	"fmt"
	"log/slog"

	"agora/internal/forum"
	"agora/internal/messaging"
	"agora/internal/models"
	"agora/internal/reactions"
	"agora/internal/store"
	livesync "agora/internal/sync"
)

// Options configuration for the seeder
type Options struct {
	NumUsers                int
	NumThemata              int
	ThreadsPerThema         int
	CommentsPerThread       int
	NumConversations        int
	MessagesPerConversation int
	Clean                   bool
	Seed                    int64
}

func (o *Options) applyDefaults() {
	if o.NumUsers <= 0 {
		o.NumUsers = 12
	}
	if o.NumThemata <= 0 {
		o.NumThemata = 4
	}
	if o.ThreadsPerThema <= 0 {
		o.ThreadsPerThema = 3
	}
	if o.CommentsPerThread <= 0 {
		o.CommentsPerThread = 6
	}
	if o.NumConversations <= 0 {
		o.NumConversations = 6
	}
	if o.MessagesPerConversation <= 0 {
		o.MessagesPerConversation = 8
	}
}

// Result reports what a run created.
type Result struct {
	Users         int
	Themata       int
	Threads       int
	Comments      int
	Conversations int
	Messages      int
}

// Run seeds the store with demo data through the regular services.
func Run(ctx context.Context, st store.Store, opts Options, logger *slog.Logger) (*Result, error) {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	hub := livesync.NewHub()
	forumSvc := forum.NewService(st, hub, logger)
	messagingSvc := messaging.NewService(st, hub, logger)
	reactionSvc := reactions.NewService(st, logger)

	f := NewFactory(opts.Seed)
	admin := models.Identity{UID: "u_admin", DisplayName: "Site Admin", Handle: "admin", IsAdmin: true}

	if opts.Clean {
		if err := clean(ctx, st, forumSvc, admin, logger); err != nil {
			return nil, err
		}
	}

	users := make([]models.Identity, opts.NumUsers)
	for i := range users {
		users[i] = f.Identity()
	}
	res := &Result{Users: len(users)}

	if err := seedForum(ctx, forumSvc, reactionSvc, f, users, opts, res); err != nil {
		return nil, err
	}
	if err := seedConversations(ctx, messagingSvc, f, users, opts, res); err != nil {
		return nil, err
	}

	logger.Info("seeding complete",
		"users", res.Users, "themata", res.Themata, "threads", res.Threads,
		"comments", res.Comments, "conversations", res.Conversations, "messages", res.Messages)
	return res, nil
}

// clean cascade-deletes every existing thema. Mailboxes are keyed by user ID
// and are left alone; seeded users get fresh IDs every run.
func clean(ctx context.Context, st store.Store, forumSvc *forum.Service, admin models.Identity, logger *slog.Logger) error {
	themata, err := forumSvc.ListThemata(ctx)
	if err != nil {
		return fmt.Errorf("list themata for clean: %w", err)
	}
	for _, th := range themata {
		if err := forumSvc.DeleteThema(ctx, admin, th.ID); err != nil {
			return fmt.Errorf("clean thema %s: %w", th.ID, err)
		}
	}
	if len(themata) > 0 {
		logger.Info("cleaned existing themata", "count", len(themata))
	}
	return nil
}

func seedForum(ctx context.Context, svc *forum.Service, reactionSvc *reactions.Service, f *Factory, users []models.Identity, opts Options, res *Result) error {
	for t := 0; t < opts.NumThemata; t++ {
		creator := users[f.Pick(len(users))]
		thema, err := svc.CreateThema(ctx, creator, f.ThemaName(t), f.CommentText())
		if err != nil {
			return fmt.Errorf("create thema: %w", err)
		}
		res.Themata++

		for i := 0; i < opts.ThreadsPerThema; i++ {
			author := users[f.Pick(len(users))]
			thread, err := svc.CreateThread(ctx, author, thema.ID, f.ThreadTitle(), f.CommentText())
			if err != nil {
				return fmt.Errorf("create thread: %w", err)
			}
			res.Threads++

			var commentIDs []string
			for c := 0; c < opts.CommentsPerThread; c++ {
				commenter := users[f.Pick(len(users))]
				parentID := ""
				// Some comments reply to an earlier one to build a tree.
				if len(commentIDs) > 0 && f.Chance(40) {
					parentID = commentIDs[f.Pick(len(commentIDs))]
				}
				comment, err := svc.AddComment(ctx, commenter, thema.ID, thread.ID, parentID, f.CommentText())
				if err != nil {
					return fmt.Errorf("add comment: %w", err)
				}
				commentIDs = append(commentIDs, comment.ID)
				res.Comments++

				if f.Chance(50) {
					reactor := users[f.Pick(len(users))]
					path := models.CommentPath(thema.ID, thread.ID, comment.ID)
					if _, err := reactionSvc.Toggle(ctx, path, reactor, f.ReactionKind()); err != nil {
						return fmt.Errorf("react to comment: %w", err)
					}
				}
			}

			if f.Chance(60) {
				reactor := users[f.Pick(len(users))]
				path := models.ThreadPath(thema.ID, thread.ID)
				if _, err := reactionSvc.Toggle(ctx, path, reactor, f.ReactionKind()); err != nil {
					return fmt.Errorf("react to thread: %w", err)
				}
			}
		}
	}
	return nil
}

func seedConversations(ctx context.Context, svc *messaging.Service, f *Factory, users []models.Identity, opts Options, res *Result) error {
	for i := 0; i < opts.NumConversations; i++ {
		creator := users[f.Pick(len(users))]

		var summary *models.ConversationSummary
		var participants []models.Identity
		var err error
		if f.Chance(70) {
			other := users[f.Pick(len(users))]
			for other.UID == creator.UID {
				other = users[f.Pick(len(users))]
			}
			participants = []models.Identity{creator, other}
			summary, err = svc.CreateConversation(ctx, creator,
				[]string{other.UID}, "", "", models.ConversationPrivate)
		} else {
			size := 2 + f.Pick(3)
			members := make([]string, 0, size)
			participants = []models.Identity{creator}
			for len(members) < size {
				u := users[f.Pick(len(users))]
				if u.UID == creator.UID {
					continue
				}
				members = append(members, u.UID)
				participants = append(participants, u)
			}
			summary, err = svc.CreateConversation(ctx, creator,
				members, f.GroupName(), "", models.ConversationGroup)
		}
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		res.Conversations++

		for m := 0; m < opts.MessagesPerConversation; m++ {
			sender := participants[f.Pick(len(participants))]
			if _, err := svc.SendMessage(ctx, sender, summary.ID, f.MessageText()); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
			res.Messages++
		}

		// Some recipients have caught up on their mailbox.
		for _, p := range participants {
			if f.Chance(50) {
				if err := svc.MarkRead(ctx, p, summary.ID); err != nil {
					return fmt.Errorf("mark read: %w", err)
				}
			}
		}
	}
	return nil
}
