package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"socialgraph/internal/dbexec"
	"socialgraph/internal/uuidutil"
)

// MySQL error numbers mapped onto store sentinel errors.
const (
	mysqlErrDuplicateEntry   = 1062
	mysqlErrRowIsReferenced  = 1451
	mysqlErrNoReferencedRow  = 1452
	mysqlErrNoReferencedRow2 = 1216
)

// SQL is the MySQL-backed Store. All statements are built with squirrel and
// executed through the dbexec abstraction so tests can substitute a mock.
type SQL struct {
	exec dbexec.QueryExecutor
}

// NewSQL creates a Store backed by the given executor.
func NewSQL(exec dbexec.QueryExecutor) *SQL {
	return &SQL{exec: exec}
}

var _ Store = (*SQL)(nil)

func mapSQLError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDuplicateEntry:
			return fmt.Errorf("%w: duplicate entry", ErrConstraint)
		case mysqlErrRowIsReferenced, mysqlErrNoReferencedRow, mysqlErrNoReferencedRow2:
			return fmt.Errorf("%w: referential integrity", ErrConstraint)
		}
	}
	return err
}

func (s *SQL) querySQL(ctx context.Context, builder sq.SelectBuilder) (dbexec.Rows, error) {
	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLError(err)
	}
	return rows, nil
}

func (s *SQL) queryRowSQL(ctx context.Context, builder sq.SelectBuilder) (dbexec.Row, error) {
	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	return s.exec.QueryRowContext(ctx, query, args...), nil
}

// scanOne maps the no-rows case onto notFound and everything else through
// the driver error mapping.
func scanOne(row dbexec.Row, notFound error, dest ...any) error {
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return mapSQLError(err)
	}
	return nil
}

func (s *SQL) execSQL(ctx context.Context, query string, args []interface{}) (int64, error) {
	res, err := s.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapSQLError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// --- member types ---

func selectMemberTypes() sq.SelectBuilder {
	return sq.Select("id", "discount", "posts_limit_per_month").From("member_types")
}

func scanMemberTypes(rows dbexec.Rows) ([]MemberType, error) {
	defer func() { _ = rows.Close() }()

	var out []MemberType
	for rows.Next() {
		var mt MemberType
		if err := rows.Scan(&mt.ID, &mt.Discount, &mt.PostsLimitPerMonth); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (s *SQL) MemberTypes(ctx context.Context) ([]MemberType, error) {
	rows, err := s.querySQL(ctx, selectMemberTypes().OrderBy("id ASC"))
	if err != nil {
		return nil, err
	}
	return scanMemberTypes(rows)
}

func (s *SQL) MemberTypeByID(ctx context.Context, id string) (*MemberType, error) {
	row, err := s.queryRowSQL(ctx, selectMemberTypes().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var mt MemberType
	notFound := fmt.Errorf("member type %s: %w", id, ErrNotFound)
	if err := scanOne(row, notFound, &mt.ID, &mt.Discount, &mt.PostsLimitPerMonth); err != nil {
		return nil, err
	}
	return &mt, nil
}

func (s *SQL) MemberTypesByIDs(ctx context.Context, ids []string) (map[string]MemberType, error) {
	if len(ids) == 0 {
		return map[string]MemberType{}, nil
	}
	rows, err := s.querySQL(ctx, selectMemberTypes().Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	tiers, err := scanMemberTypes(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]MemberType, len(tiers))
	for _, mt := range tiers {
		out[mt.ID] = mt
	}
	return out, nil
}

// --- users ---

func selectUsers() sq.SelectBuilder {
	return sq.Select("id", "name", "balance").From("users")
}

func scanUsers(rows dbexec.Rows) ([]User, error) {
	defer func() { _ = rows.Close() }()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Balance); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQL) Users(ctx context.Context) ([]User, error) {
	rows, err := s.querySQL(ctx, selectUsers().OrderBy("id ASC"))
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

func (s *SQL) UserByID(ctx context.Context, id string) (*User, error) {
	row, err := s.queryRowSQL(ctx, selectUsers().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var u User
	notFound := fmt.Errorf("user %s: %w", id, ErrNotFound)
	if err := scanOne(row, notFound, &u.ID, &u.Name, &u.Balance); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQL) CreateUser(ctx context.Context, data CreateUser) (*User, error) {
	user := User{ID: uuidutil.New(), Name: data.Name, Balance: data.Balance}

	query, args, err := sq.Insert("users").
		Columns("id", "name", "balance").
		Values(user.ID, user.Name, user.Balance).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := s.execSQL(ctx, query, args); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQL) UpdateUser(ctx context.Context, id string, data ChangeUser) (*User, error) {
	setMap := map[string]interface{}{}
	if data.Name != nil {
		setMap["name"] = *data.Name
	}
	if data.Balance != nil {
		setMap["balance"] = *data.Balance
	}
	if err := s.applyUpdate(ctx, "users", id, setMap); err != nil {
		return nil, err
	}
	return s.UserByID(ctx, id)
}

func (s *SQL) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "users", id)
}

// --- posts ---

func selectPosts() sq.SelectBuilder {
	return sq.Select("id", "title", "content", "author_id").From("posts")
}

func scanPosts(rows dbexec.Rows) ([]Post, error) {
	defer func() { _ = rows.Close() }()

	var out []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQL) Posts(ctx context.Context) ([]Post, error) {
	rows, err := s.querySQL(ctx, selectPosts().OrderBy("id ASC"))
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (s *SQL) PostByID(ctx context.Context, id string) (*Post, error) {
	row, err := s.queryRowSQL(ctx, selectPosts().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var p Post
	notFound := fmt.Errorf("post %s: %w", id, ErrNotFound)
	if err := scanOne(row, notFound, &p.ID, &p.Title, &p.Content, &p.AuthorID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQL) CreatePost(ctx context.Context, data CreatePost) (*Post, error) {
	post := Post{ID: uuidutil.New(), Title: data.Title, Content: data.Content, AuthorID: data.AuthorID}

	query, args, err := sq.Insert("posts").
		Columns("id", "title", "content", "author_id").
		Values(post.ID, post.Title, post.Content, post.AuthorID).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := s.execSQL(ctx, query, args); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *SQL) UpdatePost(ctx context.Context, id string, data ChangePost) (*Post, error) {
	setMap := map[string]interface{}{}
	if data.Title != nil {
		setMap["title"] = *data.Title
	}
	if data.Content != nil {
		setMap["content"] = *data.Content
	}
	if err := s.applyUpdate(ctx, "posts", id, setMap); err != nil {
		return nil, err
	}
	return s.PostByID(ctx, id)
}

func (s *SQL) DeletePost(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "posts", id)
}

func (s *SQL) PostsByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]Post, error) {
	if len(authorIDs) == 0 {
		return map[string][]Post{}, nil
	}
	rows, err := s.querySQL(ctx, selectPosts().Where(sq.Eq{"author_id": authorIDs}).OrderBy("id ASC"))
	if err != nil {
		return nil, err
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Post, len(authorIDs))
	for _, p := range posts {
		out[p.AuthorID] = append(out[p.AuthorID], p)
	}
	return out, nil
}

// --- profiles ---

func selectProfiles() sq.SelectBuilder {
	return sq.Select("id", "is_male", "year_of_birth", "member_type_id", "user_id").From("profiles")
}

func scanProfiles(rows dbexec.Rows) ([]Profile, error) {
	defer func() { _ = rows.Close() }()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.IsMale, &p.YearOfBirth, &p.MemberTypeID, &p.UserID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQL) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.querySQL(ctx, selectProfiles().OrderBy("id ASC"))
	if err != nil {
		return nil, err
	}
	return scanProfiles(rows)
}

func (s *SQL) ProfileByID(ctx context.Context, id string) (*Profile, error) {
	row, err := s.queryRowSQL(ctx, selectProfiles().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var p Profile
	notFound := fmt.Errorf("profile %s: %w", id, ErrNotFound)
	if err := scanOne(row, notFound, &p.ID, &p.IsMale, &p.YearOfBirth, &p.MemberTypeID, &p.UserID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQL) CreateProfile(ctx context.Context, data CreateProfile) (*Profile, error) {
	if !ValidMemberTypeID(data.MemberTypeID) {
		return nil, fmt.Errorf("%w: unknown member type %s", ErrConstraint, data.MemberTypeID)
	}

	profile := Profile{
		ID:           uuidutil.New(),
		IsMale:       data.IsMale,
		YearOfBirth:  data.YearOfBirth,
		MemberTypeID: data.MemberTypeID,
		UserID:       data.UserID,
	}

	query, args, err := sq.Insert("profiles").
		Columns("id", "is_male", "year_of_birth", "member_type_id", "user_id").
		Values(profile.ID, profile.IsMale, profile.YearOfBirth, profile.MemberTypeID, profile.UserID).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := s.execSQL(ctx, query, args); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *SQL) UpdateProfile(ctx context.Context, id string, data ChangeProfile) (*Profile, error) {
	setMap := map[string]interface{}{}
	if data.IsMale != nil {
		setMap["is_male"] = *data.IsMale
	}
	if data.YearOfBirth != nil {
		setMap["year_of_birth"] = *data.YearOfBirth
	}
	if data.MemberTypeID != nil {
		if !ValidMemberTypeID(*data.MemberTypeID) {
			return nil, fmt.Errorf("%w: unknown member type %s", ErrConstraint, *data.MemberTypeID)
		}
		setMap["member_type_id"] = *data.MemberTypeID
	}
	if err := s.applyUpdate(ctx, "profiles", id, setMap); err != nil {
		return nil, err
	}
	return s.ProfileByID(ctx, id)
}

func (s *SQL) DeleteProfile(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "profiles", id)
}

func (s *SQL) ProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	if len(userIDs) == 0 {
		return map[string]Profile{}, nil
	}
	rows, err := s.querySQL(ctx, selectProfiles().Where(sq.Eq{"user_id": userIDs}))
	if err != nil {
		return nil, err
	}
	profiles, err := scanProfiles(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

// --- subscriptions ---

func (s *SQL) Subscribe(ctx context.Context, subscriberID, authorID string) error {
	// Policy decision: a user cannot subscribe to itself.
	if subscriberID == authorID {
		return fmt.Errorf("%w: cannot subscribe to self", ErrConstraint)
	}

	query, args, err := sq.Insert("subscriptions").
		Columns("subscriber_id", "author_id").
		Values(subscriberID, authorID).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.execSQL(ctx, query, args)
	return err
}

func (s *SQL) Unsubscribe(ctx context.Context, subscriberID, authorID string) error {
	query, args, err := sq.Delete("subscriptions").
		Where(sq.Eq{"subscriber_id": subscriberID, "author_id": authorID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	affected, err := s.execSQL(ctx, query, args)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("subscription %s -> %s: %w", subscriberID, authorID, ErrNotFound)
	}
	return nil
}

func (s *SQL) AuthorsBySubscriberIDs(ctx context.Context, subscriberIDs []string) (map[string][]User, error) {
	return s.subscriptionUsers(ctx, "s.author_id", "s.subscriber_id", subscriberIDs)
}

func (s *SQL) SubscribersByAuthorIDs(ctx context.Context, authorIDs []string) (map[string][]User, error) {
	return s.subscriptionUsers(ctx, "s.subscriber_id", "s.author_id", authorIDs)
}

// subscriptionUsers resolves one side of the subscription edge for a set of
// parent keys in a single join query. userColumn names the side being
// returned, parentColumn the side being grouped by.
func (s *SQL) subscriptionUsers(ctx context.Context, userColumn, parentColumn string, parentIDs []string) (map[string][]User, error) {
	if len(parentIDs) == 0 {
		return map[string][]User{}, nil
	}

	builder := sq.Select("u.id", "u.name", "u.balance", parentColumn).
		From("users u").
		Join(fmt.Sprintf("subscriptions s ON %s = u.id", userColumn)).
		Where(sq.Eq{parentColumn: parentIDs}).
		OrderBy("u.id ASC")

	rows, err := s.querySQL(ctx, builder)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]User, len(parentIDs))
	for rows.Next() {
		var u User
		var parentID string
		if err := rows.Scan(&u.ID, &u.Name, &u.Balance, &parentID); err != nil {
			return nil, err
		}
		out[parentID] = append(out[parentID], u)
	}
	return out, rows.Err()
}

// --- shared helpers ---

// applyUpdate runs a partial UPDATE against table. An empty set map is a
// no-op apart from the existence check; a missing row reports ErrNotFound.
func (s *SQL) applyUpdate(ctx context.Context, table, id string, setMap map[string]interface{}) error {
	if len(setMap) == 0 {
		return nil
	}

	query, args, err := sq.Update(table).
		SetMap(setMap).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.execSQL(ctx, query, args)
	return err
}

func (s *SQL) deleteByID(ctx context.Context, table, id string) error {
	query, args, err := sq.Delete(table).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}
	affected, err := s.execSQL(ctx, query, args)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return nil
}
