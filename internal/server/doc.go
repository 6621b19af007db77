// Package server provides HTTP routing, middleware, and the album JSON API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Album API
//
// [AlbumHandler] serves albums under /api/albums. Every response is a [Response] envelope:
//
//	GET    /api/albums       → 200 all albums
//	GET    /api/albums/{id}  → 200 album, 404 "No such album"
//	POST   /api/albums       → 201 new album with Location, 400 missing or invalid hashtag, 400 no images
//	PATCH  /api/albums/{id}  → 200 refreshed album, 200 "No new images" when nothing changed
//	DELETE /api/albums/{id}  → 200 album, items and stored media removed
//
// The id is either the album's sequence number or its row id. Failures reaching the search service
// answer 503, media download failures answer 500.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
