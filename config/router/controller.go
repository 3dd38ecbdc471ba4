package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/miniquinox/billsync/pkg/ratelimit"
)

func normalizePath(controller *RESTController, relativePath string) string {
	path := controller.mountPoint

	if relativePath != "" {
		path = path + "/" + relativePath
	}

	if path[0] != '/' {
		path = "/" + path
	}

	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	return strings.ReplaceAll(path, "//", "/")
}

func (routerService *RouterService) keyForPathAndMethod(path, method string) string {
	return fmt.Sprintf("%s-%s", method, path)
}

func (controller *RESTController) bindHandlerToController(routerService *RouterService, path, method string) {
	key := routerService.keyForPathAndMethod(path, method)
	otherController, foundPrevious := routerService.handlerToControllerMap[key]

	if foundPrevious {
		panic(fmt.Sprintf("A handler is already registered for path '%s' by a different controller '%s'", path, otherController.name))
	}

	routerService.handlerToControllerMap[key] = controller
}

func (routerService *RouterService) bindOverrideRateLimiter(path string, limiter ratelimit.RateLimiter) {
	if limiter == nil {
		return
	}

	if _, foundPrevious := routerService.rateLimitOverrides[path]; foundPrevious {
		panic(fmt.Sprintf("A rate limiter is already registered for path '%s'", path))
	}

	routerService.rateLimitOverrides[path] = limiter
}

func (routerService *RouterService) bindHandlerRateLimiter(path, method string, limiter ratelimit.RateLimiter) {
	routerService.bindOverrideRateLimiter(routerService.keyForPathAndMethod(path, method), limiter)
}

func createHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("A handler returned an undefined result. This typically indicates a bug in a handler's implementation.").ToJSON())
			return
		}

		c.JSON(result.StatusCode, result.ToJSON())
	}
}

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	mountPoint = strings.ReplaceAll("/"+mountPoint, "//", "/")

	return &RESTController{
		name:       name,
		mountPoint: mountPoint,
		version:    "",
		prepare:    prepare,
	}
}

func NewVersionedRESTController(name, version, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	// The version is part of the mount point so routes are unambiguous.
	finalPath := strings.ReplaceAll("/"+version+"/"+mountPoint, "//", "/")

	return &RESTController{
		name:       name,
		mountPoint: finalPath,
		version:    version,
		prepare:    prepare,
	}
}

func (controller *RESTController) RateLimitWith(routerService *RouterService, limiter ratelimit.RateLimiter) *RESTController {
	routerService.bindOverrideRateLimiter(controller.mountPoint, limiter)
	return controller
}

// register binds method+path to the controller before handing the chain to gin,
// so the rate limit middleware can resolve it.
func (routerService *RouterService) register(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	method, path string,
	handlers []MiddlewareFunc,
) {
	controller.handlerCount++
	mountPoint := normalizePath(controller, path)
	controller.bindHandlerToController(routerService, mountPoint, method)
	routerService.bindHandlerRateLimiter(mountPoint, method, limiter)
	routerService.engine.Handle(method, mountPoint, handlers...)
	routerService.logger.Debug("Handler registered", "method", method, "path", mountPoint)
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, http.MethodPost, path, append(middlewares, createHandler(handler)))
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, http.MethodGet, path, append(middlewares, createHandler(handler)))
}

// AddOptionsHandler answers preflight requests with an empty body and the
// given status. CORS middlewares passed here run first and may abort.
func (routerService *RouterService) AddOptionsHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	status int,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, http.MethodOptions, path, append(middlewares, func(c *RequestContext) {
		c.Status(status)
	}))
}

// AddRawHandler registers a handler that writes its own response instead of
// the ServiceResult envelope.
func (routerService *RouterService) AddRawHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	method, path string,
	handler MiddlewareFunc,
	middlewares ...MiddlewareFunc,
) {
	routerService.register(controller, limiter, method, path, append(middlewares, handler))
}

// SetControllerHeaders sets headers on every response under the controller's
// mount point, including answers written by the global middlewares.
func (routerService *RouterService) SetControllerHeaders(controller *RESTController, headers map[string]string) {
	path := normalizePath(controller, "")
	if _, foundPrevious := routerService.controllerHeaders[path]; foundPrevious {
		panic(fmt.Sprintf("Response headers are already registered for path '%s'", path))
	}
	routerService.controllerHeaders[path] = headers
}

func (routerService *RouterService) headersForPath(path string) map[string]string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for mountPoint, headers := range routerService.controllerHeaders {
		if path == mountPoint || (mountPoint != "/" && strings.HasPrefix(path, mountPoint+"/")) {
			return headers
		}
	}
	return nil
}
