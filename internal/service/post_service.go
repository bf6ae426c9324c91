package service

import (
	"context"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// PageSize is the fixed number of posts per page for every listing view.
const PageSize = 5

const (
	maxTitleLen   = 300
	maxContentLen = 50000
)

// PostService implements post CRUD with ownership enforcement and pagination.
type PostService struct {
	postRepo repository.PostRepository
}

// CreatePostInput carries a post creation request.
type CreatePostInput struct {
	AuthorID uint
	Title    string
	Content  string
}

// UpdatePostInput carries a post update by an acting user.
type UpdatePostInput struct {
	ActorID uint
	PostID  uint
	Title   string
	Content string
}

// PostPage is one page of a user's posts, newest first.
type PostPage struct {
	Posts      []*models.Post `json:"posts"`
	Page       int            `json:"page"`
	TotalPosts int64          `json:"total_posts"`
	TotalPages int            `json:"total_pages"`
}

// NewPostService creates a new PostService.
func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// Create persists a new post for the given author. The creation timestamp is
// set by the store on insert and never modified afterwards.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:   in.Title,
		Content: in.Content,
		UserID:  in.AuthorID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.Inc()

	return s.postRepo.GetByID(ctx, post.ID)
}

// Get returns the post or NotFound.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// Update overwrites title and content. Only the stored author may update;
// any other actor gets Forbidden regardless of payload validity.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	if post.UserID != in.ActorID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	if err := validatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Content = in.Content

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes the post. Same ownership rule as Update.
func (s *PostService) Delete(ctx context.Context, actorID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if post.UserID != actorID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	return s.postRepo.Delete(ctx, postID)
}

// ListByAuthor returns the given page of the author's posts, newest first.
// Pages are 1-based; out-of-range pages return an empty list, not an error.
func (s *PostService) ListByAuthor(ctx context.Context, authorID uint, page int) (*PostPage, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.postRepo.CountByUserID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * PageSize
	posts, err := s.postRepo.GetByUserID(ctx, authorID, PageSize, offset)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + PageSize - 1) / PageSize)
	return &PostPage{
		Posts:      posts,
		Page:       page,
		TotalPosts: total,
		TotalPages: totalPages,
	}, nil
}

func validatePostFields(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	return nil
}
