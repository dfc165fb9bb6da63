package social

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	api "github.com/oggyb/campus-connect/internal/api/social"
	"github.com/oggyb/campus-connect/internal/app"
	"github.com/oggyb/campus-connect/internal/chat"
	"github.com/oggyb/campus-connect/internal/config"
	"github.com/oggyb/campus-connect/internal/db"
	svcErr "github.com/oggyb/campus-connect/internal/errors"
	"github.com/oggyb/campus-connect/internal/matching"
	"github.com/oggyb/campus-connect/internal/realtime"
	"github.com/oggyb/campus-connect/internal/repository"
	"github.com/oggyb/campus-connect/internal/session"
	"github.com/oggyb/campus-connect/internal/validation"
)

// UnknownUserName is shown for a counterpart whose profile cannot be loaded.
const UnknownUserName = "Unknown User"

// Service implements the SocialService gRPC API.
// It wires the matching core, chat and per-user sessions on top of the
// repository, cache and realtime layers.
type Service struct {
	appCtx   *app.AppContext
	log      *slog.Logger
	validate *validation.Validator
	pageSize int

	profiles      *repository.ProfileRepository
	decisionRepo  *repository.DecisionRepository
	matches       *repository.MatchRepository
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository

	ledger     *matching.Ledger
	reconciler *matching.Reconciler
	messenger  *chat.Messenger
	notifier   *session.Notifier
	router     *realtime.Router
}

var _ api.SocialServer = (*Service)(nil)

// NewSocialService creates the service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via the repositories)
//   - RedisCache for liked-you counters and notification claims
//   - Bus for announcing inserted rows (optional)
//   - the session registry shared with the realtime router
func NewSocialService(appCtx *app.AppContext) *Service {
	cfg := appCtx.Config
	if cfg == nil {
		cfg = config.New()
	}
	log := appCtx.Logger
	if log == nil {
		log = slog.Default()
	}
	if appCtx.Sessions == nil {
		appCtx.Sessions = session.NewRegistry()
	}

	s := &Service{
		appCtx:        appCtx,
		log:           log,
		validate:      validation.New(cfg.Campus.EmailDomains),
		pageSize:      cfg.Discovery.LikersPageSize,
		profiles:      repository.NewProfileRepository(appCtx.DB),
		decisionRepo:  repository.NewDecisionRepository(appCtx.DB),
		matches:       repository.NewMatchRepository(appCtx.DB),
		conversations: repository.NewConversationRepository(appCtx.DB),
		messages:      repository.NewMessageRepository(appCtx.DB),
	}

	feed := realtime.NewPublisher(appCtx.Bus)
	s.ledger = matching.NewLedger(s.decisionRepo, feed, log)
	s.reconciler = matching.NewReconciler(s.decisionRepo, s.matches, s.conversations, feed, log)
	s.messenger = chat.NewMessenger(s.conversations, s.messages, feed, log)

	var claims session.Claimer
	if appCtx.RedisCache != nil {
		claims = appCtx.RedisCache
	}
	s.notifier = session.NewNotifier(appCtx.Sessions, claims, cfg.Discovery.NotifyClaimTTL, log)
	s.router = realtime.NewRouter(appCtx.Sessions, s.notifier, s.conversations, s, log)
	return s
}

// Router returns the realtime router bound to this service's sessions.
// It is the handler for the change-feed subscription.
func (s *Service) Router() *realtime.Router { return s.router }

// ProvisionAccount creates an account and its empty profile.
//
// Behavior:
//   - Email must end with a configured campus domain.
//   - Every unmet password rule is reported at once.
//   - Account and profile share one id and are written in one transaction.
//   - A second account for the same email fails with AlreadyExists.
func (s *Service) ProvisionAccount(ctx context.Context, req *api.ProvisionAccountRequest) (*api.ProvisionAccountResponse, error) {
	s.log.Debug("ProvisionAccount called", "email", req.Email)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("hash password failed", "err", err)
		return nil, svcErr.Map(err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	id := uuid.NewString()
	account := &db.Account{ID: id, Email: email, PasswordHash: string(hash)}
	profile := &db.Profile{
		ID:                 id,
		Email:              email,
		Interests:          []string{},
		VerificationStatus: db.VerificationPending,
	}
	if err := s.profiles.Provision(ctx, account, profile); err != nil {
		if !errors.Is(err, repository.ErrEmailTaken) {
			s.log.Error("provision failed", "email", email, "err", err)
		}
		return nil, svcErr.Map(err)
	}

	s.log.Info("account provisioned", "user", id)
	return &api.ProvisionAccountResponse{UserID: id, Profile: *profile}, nil
}

func (s *Service) GetProfile(ctx context.Context, req *api.GetProfileRequest) (*api.ProfileResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	p, err := s.profiles.Get(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &api.ProfileResponse{Profile: *p}, nil
}

// UpdateProfile applies the non-nil fields of req to the owner's profile and
// recomputes is_profile_complete.
func (s *Service) UpdateProfile(ctx context.Context, req *api.UpdateProfileRequest) (*api.ProfileResponse, error) {
	s.log.Debug("UpdateProfile called", "user", req.UserID)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	p, err := s.profiles.Get(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	var columns []string
	setString := func(column string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			columns = append(columns, column)
		}
	}
	setString("full_name", &p.FullName, req.FullName)
	setString("gender", &p.Gender, req.Gender)
	setString("department", &p.Department, req.Department)
	setString("academic_year", &p.AcademicYear, req.AcademicYear)
	setString("bio", &p.Bio, req.Bio)
	setString("profile_picture_url", &p.ProfilePictureURL, req.ProfilePictureURL)
	if req.RollNumber != nil {
		p.RollNumber, _ = validation.NormalizeRollNumber(*req.RollNumber)
		columns = append(columns, "roll_number")
	}
	if req.Age != nil {
		p.Age = *req.Age
		columns = append(columns, "age")
	}
	if req.Interests != nil {
		p.Interests = cleanInterests(*req.Interests)
		columns = append(columns, "interests")
	}

	p.IsProfileComplete = p.IsDiscoverable()
	columns = append(columns, "is_profile_complete")

	updated, err := s.profiles.Update(ctx, p, columns)
	if err != nil {
		s.log.Error("update profile failed", "user", req.UserID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &api.ProfileResponse{Profile: *updated}, nil
}

// Discover refreshes the viewer's discovery queue and returns it.
//
// Behavior:
//   - Candidates are filtered by matching.Eligible: incomplete profiles and
//     profiles the viewer already liked never appear; skipped ones may.
//   - The order is a fresh shuffle on every call.
func (s *Service) Discover(ctx context.Context, req *api.DiscoverRequest) (*api.DiscoverResponse, error) {
	s.log.Debug("Discover called", "viewer", req.ViewerID)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	candidates, err := s.profiles.ListCandidates(ctx, req.ViewerID)
	if err != nil {
		return nil, svcErr.Map(&matching.PersistenceError{Op: "list candidates", Err: err})
	}
	liked, err := s.decisionRepo.ListByLiker(ctx, req.ViewerID)
	if err != nil {
		return nil, svcErr.Map(&matching.PersistenceError{Op: "list likes", Err: err})
	}

	queue := matching.Eligible(req.ViewerID, candidates, liked)
	s.appCtx.Sessions.Get(req.ViewerID).SetQueue(queue)

	s.log.Debug("Discover result", "viewer", req.ViewerID, "candidates", len(queue))
	return &api.DiscoverResponse{Profiles: queue}, nil
}

// RecordDecision records like, super_like or skip from actor on target.
//
// Behavior:
//   - skip only removes the target from the actor's queue.
//   - A like is stored once; the target leaves the queue after it is stored.
//   - A new like runs match detection. A repeated like runs it only while the
//     actor's session does not hold the match yet, which completes a detection
//     cut short by a backend error. A mutual like yields exactly one match and
//     conversation, returned in the response, and both participants' live
//     sessions are updated and notified once.
//   - On a backend error nothing local changes and the call can be retried.
func (s *Service) RecordDecision(ctx context.Context, req *api.RecordDecisionRequest) (*api.RecordDecisionResponse, error) {
	s.log.Debug("RecordDecision called", "actor", req.ActorID, "target", req.TargetID, "kind", req.Kind)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	kind, err := matching.ParseKind(req.Kind)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	sess := s.appCtx.Sessions.Get(req.ActorID)
	out, err := s.ledger.Record(ctx, sess, req.ActorID, req.TargetID, kind)
	if err != nil {
		s.log.Warn("record decision failed", "actor", req.ActorID, "target", req.TargetID, "err", err)
		return nil, svcErr.Map(err)
	}

	resp := &api.RecordDecisionResponse{Kind: string(kind), Created: out.Created}
	if !kind.Persistent() {
		resp.Remaining = len(sess.Queue())
		return resp, nil
	}

	if out.Created {
		if s.appCtx.RedisCache != nil {
			if err := s.appCtx.RedisCache.InvalidateLikeCount(ctx, req.TargetID); err != nil {
				s.log.Warn("invalidate like count failed", "user", req.TargetID, "err", err)
			}
		}
		s.apply(ctx, realtime.TableLikes, out.Decision)
	}

	if !out.Created && sess.HasMatch(matching.NewPairKey(req.ActorID, req.TargetID)) {
		resp.Remaining = len(sess.Queue())
		return resp, nil
	}

	res, err := s.reconciler.TryMatch(ctx, req.ActorID, req.TargetID)
	if err != nil {
		// the like is stored; repeating the call re-runs detection
		s.log.Warn("match detection failed", "actor", req.ActorID, "target", req.TargetID, "err", err)
		return nil, svcErr.Map(err)
	}
	if res != nil {
		s.apply(ctx, realtime.TableMatches, res.Match)
		view, err := s.matchView(ctx, req.ActorID, res.Match, res.Conversation.ID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		resp.Match = &view
	}

	resp.Remaining = len(sess.Queue())
	return resp, nil
}

// ListMatches returns the user's matches, newest first, each with the
// counterpart's profile.
func (s *Service) ListMatches(ctx context.Context, req *api.ListMatchesRequest) (*api.ListMatchesResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	ms, err := s.matches.ListForUser(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	convs, err := s.conversations.ListForUser(ctx, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	convByMatch := make(map[string]string, len(convs))
	for _, c := range convs {
		convByMatch[c.MatchID] = c.ID
	}

	others := make([]string, 0, len(ms))
	for _, m := range ms {
		if id, ok := m.OtherUser(req.UserID); ok {
			others = append(others, id)
		}
	}
	profiles, err := s.profiles.ListByIDs(ctx, others)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	s.appCtx.Sessions.Get(req.UserID).SetMatches(ms)

	resp := &api.ListMatchesResponse{Matches: make([]api.MatchView, 0, len(ms))}
	for _, m := range ms {
		other, _ := m.OtherUser(req.UserID)
		resp.Matches = append(resp.Matches, toMatchView(m, convByMatch[m.ID], counterpart(profiles, other)))
	}
	return resp, nil
}

// ListConversations returns the user's conversations ordered by updated_at
// desc, each with its last message and the user's unread count.
func (s *Service) ListConversations(ctx context.Context, req *api.ListConversationsRequest) (*api.ListConversationsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	sess := s.appCtx.Sessions.Get(req.UserID)
	if err := s.RefreshConversations(ctx, sess); err != nil {
		return nil, svcErr.Map(err)
	}
	views := sess.Conversations()

	others := make([]string, 0, len(views))
	for _, v := range views {
		if id, ok := v.Conversation.OtherUser(req.UserID); ok {
			others = append(others, id)
		}
	}
	profiles, err := s.profiles.ListByIDs(ctx, others)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &api.ListConversationsResponse{Conversations: make([]api.ConversationView, 0, len(views))}
	for _, v := range views {
		other, _ := v.Conversation.OtherUser(req.UserID)
		resp.Conversations = append(resp.Conversations, toConversationView(v, counterpart(profiles, other)))
	}
	return resp, nil
}

// OpenConversation returns the message list oldest first. Opening marks the
// counterpart's messages read and makes this the session's open conversation,
// so realtime messages for it are appended to the list.
func (s *Service) OpenConversation(ctx context.Context, req *api.OpenConversationRequest) (*api.OpenConversationResponse, error) {
	s.log.Debug("OpenConversation called", "user", req.UserID, "conversation", req.ConversationID)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	conv, msgs, err := s.messenger.Open(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	sess := s.appCtx.Sessions.Get(req.UserID)
	sess.OpenConversation(conv.ID, msgs)
	view := chat.Project(*conv, msgs, req.UserID)
	sess.UpsertConversation(view)

	other, _ := conv.OtherUser(req.UserID)
	profiles, err := s.profiles.ListByIDs(ctx, []string{other})
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if msgs == nil {
		msgs = []db.Message{}
	}
	return &api.OpenConversationResponse{
		Conversation: toConversationView(view, counterpart(profiles, other)),
		Messages:     msgs,
	}, nil
}

// CloseConversation leaves the open conversation, so later messages for it
// raise notifications again instead of being appended to the list.
func (s *Service) CloseConversation(ctx context.Context, req *api.CloseConversationRequest) (*api.CloseConversationResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	closed := false
	if sess, ok := s.appCtx.Sessions.Lookup(req.UserID); ok {
		closed = sess.CloseConversation(req.ConversationID)
	}
	return &api.CloseConversationResponse{Closed: closed}, nil
}

// SendMessage stores a message from a participant and bumps the
// conversation to the top of both participants' lists.
func (s *Service) SendMessage(ctx context.Context, req *api.SendMessageRequest) (*api.SendMessageResponse, error) {
	s.log.Debug("SendMessage called", "user", req.UserID, "conversation", req.ConversationID)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	msg, err := s.messenger.Send(ctx, req.UserID, req.ConversationID, req.Content)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	s.apply(ctx, realtime.TableMessages, *msg)
	return &api.SendMessageResponse{Message: *msg}, nil
}

// ListLikedYou returns all users who liked the given recipient.
//
// Behavior:
//   - Fetches likes for the given recipient via repository.GetLikers.
//   - Supports cursor-based pagination with paginationToken.
//   - Returns actor_id + timestamp pairs, newest first.
func (s *Service) ListLikedYou(ctx context.Context, req *api.ListLikedYouRequest) (*api.ListLikedYouResponse, error) {
	s.log.Debug("ListLikedYou called", "recipient", req.RecipientUserID)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	decisions, nextToken, err := s.decisionRepo.GetLikers(ctx, req.RecipientUserID, req.PaginationToken, s.pageSize)
	if err != nil {
		s.log.Error("GetLikers failed", "err", err)
		return nil, svcErr.Map(err)
	}
	return toLikers(decisions, nextToken), nil
}

// ListNewLikedYou is ListLikedYou without the likers already liked back.
func (s *Service) ListNewLikedYou(ctx context.Context, req *api.ListLikedYouRequest) (*api.ListLikedYouResponse, error) {
	s.log.Debug("ListNewLikedYou called", "recipient", req.RecipientUserID)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	decisions, nextToken, err := s.decisionRepo.GetNewLikers(ctx, req.RecipientUserID, req.PaginationToken, s.pageSize)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toLikers(decisions, nextToken), nil
}

// CountLikedYou returns how many users liked the recipient.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID), refreshing its TTL.
//  2. On a miss falls back to DB via repository.CountLikers.
//  3. On DB fetch, updates Redis with a 1h TTL.
//
// A new like on the recipient invalidates the cached value.
func (s *Service) CountLikedYou(ctx context.Context, req *api.CountLikedYouRequest) (*api.CountLikedYouResponse, error) {
	s.log.Debug("CountLikedYou called", "recipient", req.RecipientUserID)

	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	rc := s.appCtx.RedisCache
	if rc != nil {
		if n, ok, err := rc.GetLikeCount(ctx, req.RecipientUserID); err == nil && ok {
			return &api.CountLikedYouResponse{Count: uint64(n)}, nil
		} else if err != nil {
			s.log.Warn("like count cache read failed", "err", err)
		}
	}

	count, err := s.decisionRepo.CountLikers(ctx, req.RecipientUserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if rc != nil {
		_ = rc.SetLikeCount(ctx, req.RecipientUserID, count)
	}
	return &api.CountLikedYouResponse{Count: uint64(count)}, nil
}

// PollNotifications drains the user's pending notifications. The first call
// starts the user's session.
func (s *Service) PollNotifications(ctx context.Context, req *api.PollNotificationsRequest) (*api.PollNotificationsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	notes := s.appCtx.Sessions.Get(req.UserID).DrainNotifications()
	if notes == nil {
		notes = []session.Notification{}
	}
	return &api.PollNotificationsResponse{Notifications: notes}, nil
}

// EndSession drops the user's server-side state. Realtime events for the
// user are ignored until a new session starts.
func (s *Service) EndSession(ctx context.Context, req *api.EndSessionRequest) (*api.EndSessionResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	ended := s.appCtx.Sessions.Drop(req.UserID)
	s.log.Debug("session ended", "user", req.UserID, "existed", ended)
	return &api.EndSessionResponse{Ended: ended}, nil
}

// apply routes a row this process just inserted through the realtime router,
// so local sessions converge without waiting for the bus. The bus delivery
// that follows is a no-op for them.
func (s *Service) apply(ctx context.Context, table string, record any) {
	ev, err := realtime.NewInsert(table, record, time.Now())
	if err != nil {
		s.log.Error("build local event failed", "table", table, "err", err)
		return
	}
	if err := s.router.Dispatch(ctx, ev); err != nil {
		s.log.Warn("local event apply failed", "table", table, "err", err)
	}
}

func (s *Service) matchView(ctx context.Context, viewerID string, m db.Match, conversationID string) (api.MatchView, error) {
	other, _ := m.OtherUser(viewerID)
	profiles, err := s.profiles.ListByIDs(ctx, []string{other})
	if err != nil {
		return api.MatchView{}, err
	}
	return toMatchView(m, conversationID, counterpart(profiles, other)), nil
}

func counterpart(profiles map[string]db.Profile, id string) db.Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return db.Profile{ID: id, FullName: UnknownUserName, Interests: []string{}}
}

func toMatchView(m db.Match, conversationID string, other db.Profile) api.MatchView {
	return api.MatchView{
		ID:             m.ID,
		User1ID:        m.User1ID,
		User2ID:        m.User2ID,
		CreatedAt:      m.CreatedAt,
		ConversationID: conversationID,
		Counterpart:    other,
	}
}

func toConversationView(v chat.View, other db.Profile) api.ConversationView {
	c := v.Conversation
	return api.ConversationView{
		ID:          c.ID,
		MatchID:     c.MatchID,
		User1ID:     c.User1ID,
		User2ID:     c.User2ID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		Counterpart: other,
		LastMessage: v.LastMessage,
		UnreadCount: v.UnreadCount,
	}
}

func toLikers(decisions []db.Decision, nextToken *string) *api.ListLikedYouResponse {
	resp := &api.ListLikedYouResponse{Likers: make([]api.Liker, 0, len(decisions))}
	for _, d := range decisions {
		resp.Likers = append(resp.Likers, api.Liker{
			ActorID:       d.LikerID,
			UnixTimestamp: uint64(d.CreatedAt.UnixMilli()),
			IsSuperLike:   d.IsSuperLike,
		})
	}
	resp.NextPaginationToken = nextToken
	return resp
}

func cleanInterests(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
