package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/auth"
	"github.com/cuongbtq/job-tracker/internal/derive"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/editor"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/session"
	"github.com/cuongbtq/job-tracker/internal/state"
	amqp "github.com/rabbitmq/amqp091-go"
)

var errUsage = errors.New("invalid usage")

// app runs one tracker-cli command against the backend
type app struct {
	api    *apiclient.Client
	auth   *auth.Service
	events events.Emitter
	logger *slog.Logger
	out    io.Writer
	in     io.Reader

	creds         domain.Credentials
	redirectDelay time.Duration
	prefetch      int
	subscribe     func() (<-chan amqp.Delivery, io.Closer, error)
}

func newApp(api *apiclient.Client, emitter events.Emitter, logger *slog.Logger, out io.Writer, in io.Reader) *app {
	return &app{
		api:    api,
		auth:   auth.NewService(api, session.NewMemoryStore(), emitter, 0, logger),
		events: emitter,
		logger: logger,
		out:    out,
		in:     in,
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "register":
		return a.register(ctx)
	case "list":
		return a.list(ctx, rest)
	case "stats":
		return a.stats(ctx)
	case "show":
		return a.show(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "watch":
		return a.watch(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// login opens a session for the configured credentials
func (a *app) login(ctx context.Context) (*session.Session, error) {
	sess, err := a.auth.Login(ctx, a.creds)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, errors.New(domain.MsgLoginFailed)
		}
		return nil, err
	}
	return sess, nil
}

func (a *app) editorDeps(sess *session.Session) editor.Dependencies {
	return editor.Dependencies{
		API:           a.api,
		List:          state.NewJobList(a.api, sess.UserID(), a.logger),
		Events:        a.events,
		Logger:        a.logger,
		RedirectDelay: a.redirectDelay,
	}
}

func (a *app) register(ctx context.Context) error {
	user, err := a.auth.Register(ctx, a.creds)
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return errors.New(domain.MsgUsernameTaken)
		}
		return err
	}
	fmt.Fprintf(a.out, "%s (user %s)\n", domain.MsgRegisterSuccess, user.ID)
	return nil
}

func (a *app) fetchList(ctx context.Context) (*session.Session, *state.JobList, error) {
	sess, err := a.login(ctx)
	if err != nil {
		return nil, nil, err
	}

	list := state.NewJobList(a.api, sess.UserID(), a.logger)
	if err := list.Fetch(ctx); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", list.Snapshot().Error, err)
	}
	return sess, list, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.String("search", "", "Case-insensitive company or role search")
	filter := fs.String("filter", "", "Status filter")
	sort := fs.String("sort", "", "Date order: asc or desc")
	pageSize := fs.Int("page-size", 0, "Jobs per page, 0 for all")
	cursor := fs.String("cursor", "", "Continue after this cursor")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	_, list, err := a.fetchList(ctx)
	if err != nil {
		return err
	}

	query := derive.Query{Search: *search, Filter: domain.JobStatus(*filter), Sort: derive.SortOrder(*sort)}
	derived := derive.Derive(list.Snapshot().Jobs, query)
	if len(derived) == 0 {
		fmt.Fprintln(a.out, domain.MsgNoJobsFound)
		return nil
	}

	page, err := derive.Paginate(derived, query.SortOrder(), *pageSize, *cursor)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPANY\tROLE\tSTATUS\tAPPLIED")
	for _, job := range page.Jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", job.ID, job.Company, job.Role, job.Status, derive.FormatDate(job.DateApplied))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if page.NextCursor != "" {
		fmt.Fprintf(a.out, "\nMore results: -cursor %s\n", page.NextCursor)
	}
	return nil
}

func (a *app) stats(ctx context.Context) error {
	_, list, err := a.fetchList(ctx)
	if err != nil {
		return err
	}

	s := derive.CalculateJobStats(list.Snapshot().Jobs)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%d\n", s.Total)
	fmt.Fprintf(tw, "%s\t%d\n", domain.JobStatusApplied, s.Applied)
	fmt.Fprintf(tw, "%s\t%d\n", domain.JobStatusInterviewed, s.Interviewed)
	fmt.Fprintf(tw, "%s\t%d\n", domain.JobStatusRejected, s.Rejected)
	return tw.Flush()
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: show <id>", errUsage)
	}

	sess, err := a.login(ctx)
	if err != nil {
		return err
	}

	e, err := editor.Load(ctx, sess, domain.ParseID(args[0]), false, a.editorDeps(sess))
	if err != nil {
		return loadError(err)
	}
	return a.printJob(e.Job())
}

func (a *app) printJob(job domain.Job) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", job.ID)
	fmt.Fprintf(tw, "Company\t%s\n", job.Company)
	fmt.Fprintf(tw, "Role\t%s\n", job.Role)
	fmt.Fprintf(tw, "Status\t%s\n", job.Status)
	fmt.Fprintf(tw, "Applied\t%s\n", derive.FormatDate(job.DateApplied))
	fmt.Fprintf(tw, "Address\t%s\n", job.Details.Address)
	fmt.Fprintf(tw, "Contact\t%s\n", job.Details.Contact)
	fmt.Fprintf(tw, "Duties\t%s\n", job.Details.Duties)
	fmt.Fprintf(tw, "Requirements\t%s\n", job.Details.Requirements)
	return tw.Flush()
}

func loadError(err error) error {
	if errors.Is(err, domain.ErrOwnerMismatch) {
		return errors.New(domain.MsgUnauthorized)
	}
	return err
}

// fieldFlags binds one flag per editable field and reports only the flags given
type fieldFlags struct {
	fs     *flag.FlagSet
	values map[string]*string
}

var fieldFlagNames = map[string]string{
	"company":      editor.FieldCompany,
	"role":         editor.FieldRole,
	"status":       editor.FieldStatus,
	"date":         editor.FieldDateApplied,
	"address":      editor.FieldAddress,
	"contact":      editor.FieldContact,
	"duties":       editor.FieldDuties,
	"requirements": editor.FieldRequirements,
}

func newFieldFlags(name string) *fieldFlags {
	f := &fieldFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError), values: make(map[string]*string)}
	f.fs.SetOutput(io.Discard)
	for flagName, field := range fieldFlagNames {
		f.values[flagName] = f.fs.String(flagName, "", field)
	}
	return f
}

func (f *fieldFlags) parse(args []string) (map[string]string, error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	fields := make(map[string]string)
	f.fs.Visit(func(fl *flag.Flag) {
		fields[fieldFlagNames[fl.Name]] = *f.values[fl.Name]
	})
	return fields, nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fields, err := newFieldFlags("add").parse(args)
	if err != nil {
		return err
	}

	sess, err := a.login(ctx)
	if err != nil {
		return err
	}

	e, err := editor.NewJob(sess, a.editorDeps(sess))
	if err != nil {
		return err
	}
	return a.save(ctx, e, fields)
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("%w: edit <id> [field flags]", errUsage)
	}

	fields, err := newFieldFlags("edit").parse(args[1:])
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: nothing to change", errUsage)
	}

	sess, err := a.login(ctx)
	if err != nil {
		return err
	}

	e, err := editor.Load(ctx, sess, domain.ParseID(args[0]), true, a.editorDeps(sess))
	if err != nil {
		return loadError(err)
	}
	return a.save(ctx, e, fields)
}

func (a *app) save(ctx context.Context, e *editor.Editor, fields map[string]string) error {
	if err := e.SetAll(fields); err != nil {
		return err
	}

	outcome, err := e.Save(ctx)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return fmt.Errorf("%s: %w", apiclient.Message(err, domain.MsgJobSaveFailed), err)
	}

	fmt.Fprintln(a.out, outcome.Message)
	return a.printJob(outcome.Job)
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("%w: delete <id> [-yes]", errUsage)
	}

	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	sess, list, err := a.fetchList(ctx)
	if err != nil {
		return err
	}

	id := domain.ParseID(args[0])
	job, ok := list.Find(id)
	if !ok {
		fetched, err := a.api.GetJob(ctx, id)
		if err != nil {
			var apiErr *apiclient.APIError
			if errors.As(err, &apiErr) && apiErr.IsNotFound() {
				return domain.ErrJobNotFound
			}
			return err
		}
		job = *fetched
	}

	if !editor.CanDelete(sess, job) {
		return errors.New(domain.MsgUnauthorized)
	}

	if !*yes && !a.confirm(fmt.Sprintf("Delete %s / %s?", job.Company, job.Role)) {
		fmt.Fprintln(a.out, "Canceled")
		return nil
	}

	if err := list.Delete(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", list.Snapshot().Error, err)
	}

	a.events.Emit(events.NewJobEvent(events.TypeJobDeleted, sess.UserID(), job))
	fmt.Fprintln(a.out, domain.MsgJobDeleted)
	return nil
}

func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)

	scanner := bufio.NewScanner(a.in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

// watch prints the logged-in user's events until interrupted
func (a *app) watch(ctx context.Context) error {
	if a.subscribe == nil {
		return errors.New("event watching is not configured")
	}

	sess, err := a.login(ctx)
	if err != nil {
		return err
	}

	deliveries, closer, err := a.subscribe()
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer closer.Close()

	fmt.Fprintf(a.out, "Watching events for %s, press Ctrl+C to stop\n", sess.User.Username)

	userID := sess.UserID()
	events.Consume(ctx, deliveries, func(_ context.Context, e events.Event) error {
		if !e.UserID.Equal(userID) {
			return nil
		}
		fmt.Fprintln(a.out, describe(e))
		return nil
	}, a.logger)
	return nil
}

func describe(e events.Event) string {
	line := fmt.Sprintf("%s  %-17s", e.OccurredAt.Local().Format(time.DateTime), e.Type)
	switch {
	case e.Job != nil:
		return fmt.Sprintf("%s %s / %s [%s] (id %s)", line, e.Job.Company, e.Job.Role, e.Job.Status, e.Job.ID)
	case !e.JobID.IsZero():
		return fmt.Sprintf("%s job %s", line, e.JobID)
	default:
		return fmt.Sprintf("%s %s", line, e.Username)
	}
}
