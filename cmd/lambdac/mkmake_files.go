package main

// Bundled project-scaffold text for the mkmake subcommand, ported
// verbatim (source text, not code) from
// original_source/lambda_compiler/bundled_files/*.py's `source` string
// constants: io_lambda.py, io_c.py, runtime_h.py, runtime_c.py,
// std_lambda.py. The Makefile and per-crate .lambda templates have no
// surviving source in original_source/ (bundled_files/makefile.py and
// crate_lambda.py were not part of the retrieved source tree), so those
// two are authored here directly from internal/buildfile's own artifact
// naming (hlirPath/hlisPath/mlirPath/mlirOptPath/llirPath/llirMainPath)
// and lambdac's own subcommand names, rather than ported from a missing
// file.

const makefileTemplate = `NAME := {{NAME}}
LAMBDAC := lambdac
CC := cc
TARGET := $(shell uname -m)

SRC := src/$(NAME).lambda
OUT := out

.PHONY: all clean
all: $(OUT)/$(NAME)

$(OUT):
	mkdir -p $(OUT)

$(OUT)/$(NAME).hlir: $(SRC) | $(OUT)
	$(LAMBDAC) lang2hlir $(SRC) -o $@

$(OUT)/$(NAME).mlir: $(OUT)/$(NAME).hlir | $(OUT)
	$(LAMBDAC) hlir2mlir $< -o $@

$(OUT)/$(NAME).opt.mlir: $(OUT)/$(NAME).mlir | $(OUT)
	$(LAMBDAC) mlir2opt -P $(OUT) -c $(NAME) $< -o $@

$(OUT)/$(NAME).ll: $(OUT)/$(NAME).opt.mlir | $(OUT)
	$(LAMBDAC) mlir2llir -c $(NAME) -t $(TARGET) $< -o $@

$(OUT)/$(NAME).main.ll: $(OUT)/$(NAME).opt.mlir | $(OUT)
	$(LAMBDAC) llir2main -t $(TARGET) $(NAME) -o $@

$(OUT)/runtime.o: src/runtime.c src/lambda.h | $(OUT)
	$(CC) -c $< -o $@

$(OUT)/io.o: src/io.c src/lambda.h | $(OUT)
	$(CC) -c $< -o $@

$(OUT)/$(NAME): $(OUT)/$(NAME).ll $(OUT)/$(NAME).main.ll $(OUT)/runtime.o $(OUT)/io.o
	$(CC) $^ -o $@

clean:
	rm -rf $(OUT)
`

const crateLambdaTemplate = `extern crate std;
use std::*;

extern crate io;
use io::*;

pub main = puts (list_n 0);
`

const stdLambdaFilename = "src/std.lambda"
const stdLambdaSource = `pub true = a -> b -> a;
pub false = a -> b -> b;

pub not = a -> a false true;
pub and = a -> b -> a b false;
pub or = a -> b -> a true b;

pub never = a -> false;
pub never2 = a -> a -> false;

pub pair = a -> b -> sel -> sel a b;
pub 1st = p -> p true;
pub 2nd = p -> p false;

pub ident = a -> a;
pub y = g -> (f -> f f) f -> g x -> f f x;
pub error = y (error -> _ -> error);
pub do = y do -> arg -> f -> do (f arg);

pub while = y while -> cond -> f -> initial ->
    cond initial
        (x -> while cond f (f initial))
        (x -> initial)
    ident;

pub zero = false;
pub succ = n -> s -> s n;
pub pred = n -> n true zero;
pub iszero = n -> n never2 true;

pub count = y count -> f -> initial -> nat ->
    nat
        (pred -> _ -> count f (f initial) pred)
        initial;

pub equal = y equal -> nat1 -> nat2 ->
    nat1
        (pred1 -> _ ->
            nat2
                (pred2 -> _ -> equal pred1 pred2)
                false
        )
        (iszero nat2);

pub less = y less -> a -> b ->
    iszero a
        (x -> not (iszero b))
        (x -> less (pred a) (pred b))
    ident;

pub greater = a -> b -> less b a;

pub add = nat1 -> nat2 -> count succ nat1 nat2;
pub sub = nat1 -> nat2 -> count pred nat1 nat2;
pub mul = nat1 -> nat2 -> count (add nat1) zero nat2;

pub divmod = a -> b -> y (div -> acc -> r ->
        less acc b
            (x -> pair r acc)
            (x -> div (sub acc b) (succ r))
        ident
    ) a zero;

pub div = a -> b -> 1st (divmod a b);
pub rem = a -> b -> 2nd (divmod a b);

pub 0 = zero;
pub 1 = succ 0;
pub 2 = succ 1;
pub 3 = succ 2;
pub 4 = succ 3;
pub 5 = succ 4;
pub 6 = succ 5;
pub 7 = succ 6;
pub 8 = succ 7;
pub 9 = succ 8;
pub 10 = succ 9;

pub dec2 = a -> b -> add (mul a 10) b;
pub dec3 = a -> b -> c -> dec2 (dec2 a b) c;

pub prepend = pair;
pub first = 1st;
pub rest = 2nd;
pub nil = false;

pub empty = list -> list (head -> tail -> _ -> false) true;

pub map = y map -> f -> list ->
    empty list
        (x -> nil)
        (x -> prepend (f (first list)) (map f (rest list)))
    ident;

pub zip = y zip -> f -> list1 -> list2 ->
    or (empty list1) (empty list2)
        (x -> nil)
        (x -> prepend (f (first list1) (first list2)) (zip f (rest list1) (rest list2)))
    ident;

pub foldl = y foldl -> f -> initial -> list ->
    empty list
        (x -> initial)
        (x -> foldl f (f initial (first list)) (rest list))
    ident;

pub prepend_all = y prepend_all -> list1 -> list2 ->
    empty list1
        (x -> list2)
        (x -> prepend_all (rest list1) (prepend (first list1) list2))
    ident;

pub reverse = list -> prepend_all list nil;

pub append = list -> el -> prepend_all (reverse list) (prepend el nil);

pub append_n = y append_n -> nat -> list ->
    iszero nat
        (x -> list)
        (x -> el -> append_n (pred nat) (append list el))
    ident;

pub list_n = nat -> append_n nat nil;
`

const ioLambdaFilename = "src/io.lambda"
const ioLambdaSource = `extern crate std;
use std::*;

extern impure lambda_io_zero;
extern impure lambda_io_succ;
extern impure lambda_io_pred;
extern impure lambda_io_iszero;
extern impure lambda_io_putc;
extern impure lambda_io_getc;
extern impure lambda_io_debug;

impure nat2c = n -> count lambda_io_succ lambda_io_zero n;

impure c2nat = n -> 2nd (while
    (p -> not (lambda_io_iszero (1st p)))
    (p -> pair
        (lambda_io_pred (1st p))
        (succ (2nd p))
    )
    (pair n zero)
);

pub eof = dec3 2 5 6;

pop_eof = list ->
    equal (first list) eof
        (x -> rest list)
        (x -> list)
    ident;

pub impure putc = n -> lambda_io_putc (nat2c n);

pub impure puts = s -> map putc s;

pub impure getc = x -> c2nat (lambda_io_getc x);

pub impure gets = x -> reverse (pop_eof (while
    (l -> not (or (equal (first l) eof) (equal (first l) 10)))
    (l -> prepend (getc ident) l)
    (prepend (getc ident) nil)
));

pub impure trap = lambda_io_debug;
`

const runtimeHFilename = "src/lambda.h"
const runtimeHSource = `#ifndef _LAMBDA_H
#define _LAMBDA_H

#include <stddef.h>
#include <stdnoreturn.h>

typedef struct lambda lambda;
typedef struct lambda_header lambda_header;
typedef struct lambda_cont lambda_cont;
typedef lambda* lambda_impl(lambda* arg, lambda* self, lambda_cont* cont);
typedef void lambda_destructor(void * userdata);

struct lambda_header {
    size_t refcount;
    size_t len_captures;
    size_t len_userdata;
    union {
        lambda_impl* impl;
        lambda* tail;
    };
};

struct lambda {
    lambda_header header;
    lambda* captures[];
};

struct lambda_cont {
    lambda_cont* next;
    lambda* fn;
};

#define LAMBDA_USER_DESTRUCTOR 1
#define LAMBDA_LEN_USERDATA(l) ((l)->len_userdata & ~LAMBDA_USER_DESTRUCTOR)

#define LAMBDA_INSTANCE(_name, _impl, _len_captures, _len_userdata, ...) \
    struct { \
        lambda_header header; \
        lambda* captures[_len_captures]; \
        char userdata[(_len_userdata) & ~LAMBDA_USER_DESTRUCTOR]; \
    } _name = { \
        .header = { \
            .refcount = 1, \
            .len_captures = _len_captures, \
            .len_userdata = _len_userdata, \
            .impl = _impl \
        }, \
        __VA_ARGS__ \
    }

void* lambda_userdata(lambda* l);
noreturn void lambda_abort(void);
void* lambda_mem_alloc(size_t size);
void lambda_mem_free(void* mem);
lambda* lambda_alloc(size_t len_captures, size_t len_userdata);
lambda_cont* lambda_cont_alloc(lambda_cont* cont, lambda* l);
void lambda_ref(lambda* l, size_t count);
void lambda_unref(lambda* l);
lambda* lambda_call(lambda* fn, lambda* arg, lambda_cont* cont);
lambda* lambda_cont_call(lambda* arg, lambda_cont* cont);
lambda* lambda_ret_call(lambda* fn, lambda* arg);
lambda* lambda_null_call(lambda* fn);

#endif
`

const runtimeCFilename = "src/runtime.c"
const runtimeCSource = `#include <stddef.h>
#include <stdnoreturn.h>
#include <stdlib.h>

#include "lambda.h"

void* lambda_userdata(lambda* l) {
    return (void*) &l->captures[l->header.len_captures];
}

__attribute__((weak))
noreturn void lambda_abort(void) {
    abort();
}

__attribute__((weak))
void * lambda_mem_alloc(size_t size) {
    void * mem = malloc(size);
    if (mem == NULL) {
        lambda_abort();
    }
    return mem;
}

__attribute__((weak))
void lambda_mem_free(void * mem) {
    free(mem);
}

lambda* lambda_alloc(size_t len_captures, size_t len_userdata) {
    lambda* l = (lambda*) lambda_mem_alloc(
        sizeof (lambda) +
        sizeof (lambda*) * len_captures +
        len_userdata
    );

    l->header.refcount = 1;
    l->header.len_captures = len_captures;
    l->header.len_userdata = len_userdata;
    return l;
}

lambda_cont* lambda_cont_alloc(lambda_cont* cont, lambda* l) {
    lambda_cont* c = (lambda_cont*) lambda_mem_alloc(
        sizeof (lambda_cont)
    );

    c->next = cont;
    c->fn = l;
    return c;
}

void lambda_ref(lambda* l, size_t count) {
    l->header.refcount += count;
}

void lambda_unref(lambda* l) {
    if (l->header.refcount > 1) {
        l->header.refcount--;
        return;
    }

    lambda* tail = NULL;
    if (l->header.refcount == 0) {
        tail = l->header.tail;
    }

    for (size_t i = 0; i < l->header.len_captures; i++) {
        lambda* cur = l->captures[i];
        if (cur->header.refcount > 1) {
            cur->header.refcount--;
            continue;
        }

        if (tail != NULL) {
            cur->header.refcount = 0;
            cur->header.tail = tail;
        }

        tail = cur;
    }

    lambda_mem_free(l);

    if (tail != NULL) {
        lambda_unref(tail);
    }
}

lambda* lambda_call(lambda* fn, lambda* arg, lambda_cont* cont) {
    return fn->header.impl(arg, fn, cont);
}

lambda* lambda_cont_call(lambda* arg, lambda_cont* cont) {
    lambda_cont* next = cont->next;
    lambda* fn = cont->fn;

    lambda_mem_free(cont);
    return lambda_call(fn, arg, next);
}

static lambda* lambda_ret_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_unref(self);

    if (cont != NULL) {
        lambda_abort();
    }

    return arg;
}

static LAMBDA_INSTANCE(lambda_ret_inst, lambda_ret_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

static lambda* lambda_null_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_unref(arg);
    return lambda_cont_call(self, cont);
}

static LAMBDA_INSTANCE(lambda_null_inst, lambda_null_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_ret_call(lambda* fn, lambda* arg) {
    lambda* ret = (lambda*)&lambda_ret_inst;
    lambda_ref(ret, 1);

    lambda_cont* cont = lambda_cont_alloc(NULL, ret);

    return lambda_call(fn, arg, cont);
}

lambda* lambda_null_call(lambda* fn) {
    lambda* null = (lambda*)&lambda_null_inst;
    lambda_ref(null, 1);

    return lambda_ret_call(fn, null);
}
`

const ioCFilename = "src/io.c"
const ioCSource = `#include <stdio.h>
#include "lambda.h"

static lambda* lambda_io_true_2_0_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_ref(self->captures[0], 1);
    lambda_unref(arg);
    lambda* value = self->captures[0];
    lambda_unref(self);
    return lambda_cont_call(value, cont);
}

static lambda* lambda_io_true_1_0_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda* value = lambda_alloc(1, 0);
    value->header.impl = lambda_io_true_2_0_impl;
    value->captures[0] = arg;
    lambda_unref(self);
    return lambda_cont_call(value, cont);
}

LAMBDA_INSTANCE(lambda_io_true_0_inst, lambda_io_true_1_0_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_true = (lambda*)&lambda_io_true_0_inst;

static lambda* lambda_io_false_2_0_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_unref(self);
    return lambda_cont_call(arg, cont);
}

LAMBDA_INSTANCE(lambda_io_false_0_inst, lambda_io_false_2_0_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

static lambda* lambda_io_false_1_0_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_ref((lambda*)&lambda_io_false_0_inst, 1);
    lambda_unref(arg);
    lambda_unref(self);
    return lambda_cont_call((lambda*)&lambda_io_false_0_inst, cont);
}

LAMBDA_INSTANCE(lambda_io_false_1_inst, lambda_io_false_1_0_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_false = (lambda*)&lambda_io_false_1_inst;

static lambda* lambda_io_error_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_unref(arg);
    return lambda_cont_call(self, cont);
}

LAMBDA_INSTANCE(lambda_io_error_inst, lambda_io_error_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_error = (lambda*)&lambda_io_error_inst;

static lambda* num_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_unref(arg);

    return lambda_cont_call(self, cont);
}

static lambda* mk_num(size_t n) {
    lambda* l = lambda_alloc(0, sizeof (size_t));
    l->header.impl = num_impl;

    *(size_t*)lambda_userdata(l) = n;

    return l;
}

static size_t get_num(lambda* l) {
    if (l->header.len_userdata != sizeof (size_t)) return -1;

    return *(size_t*)lambda_userdata(l);
}

static lambda* lambda_io_zero_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    lambda_unref(arg);
    lambda_unref(self);
    lambda_ref(lambda_io_error, 1);
    return lambda_cont_call(lambda_io_error, cont);
}

LAMBDA_INSTANCE(lambda_io_zero_inst, lambda_io_zero_impl, 0, 8,
    .captures = {},
    .userdata = {0, 0, 0, 0, 0, 0, 0, 0}
);

lambda* lambda_io_zero = (lambda*)&lambda_io_zero_inst;

static lambda* lambda_io_succ_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    size_t num = get_num(arg);
    lambda* r = mk_num(num + 1);

    lambda_unref(arg);
    lambda_unref(self);

    return lambda_cont_call(r, cont);
}

LAMBDA_INSTANCE(lambda_io_succ_inst, lambda_io_succ_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_succ = (lambda*)&lambda_io_succ_inst;

static lambda* lambda_io_pred_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    size_t num = get_num(arg);
    lambda* r = mk_num(num - 1);

    lambda_unref(arg);
    lambda_unref(self);

    return lambda_cont_call(r, cont);
}

LAMBDA_INSTANCE(lambda_io_pred_inst, lambda_io_pred_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_pred = (lambda*)&lambda_io_pred_inst;

static lambda* lambda_io_iszero_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    size_t num = get_num(arg);

    lambda_unref(arg);
    lambda_unref(self);

    lambda* r;
    if (num == 0) {
        r = lambda_io_true;
    } else {
        r = lambda_io_false;
    }

    lambda_ref(r, 1);
    return lambda_cont_call(r, cont);
}

LAMBDA_INSTANCE(lambda_io_iszero_inst, lambda_io_iszero_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_iszero = (lambda*)&lambda_io_iszero_inst;

static lambda* lambda_io_putc_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    size_t num = get_num(arg);

    putchar(num);

    lambda_unref(arg);
    lambda_unref(self);

    lambda_ref(lambda_io_error, 1);
    return lambda_cont_call(lambda_io_error, cont);
}

LAMBDA_INSTANCE(lambda_io_putc_inst, lambda_io_putc_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_putc = (lambda*)&lambda_io_putc_inst;

static lambda* lambda_io_getc_impl(lambda* arg, lambda* self, lambda_cont* cont) {
    int c = getchar();

    size_t num;
    if (c == EOF) {
        num = 256;
    } else {
        num = c;
    }

    lambda* r = mk_num(num);

    lambda_unref(arg);
    lambda_unref(self);

    return lambda_cont_call(r, cont);
}

LAMBDA_INSTANCE(lambda_io_getc_inst, lambda_io_getc_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_getc = (lambda*)&lambda_io_getc_inst;

static lambda* lambda_io_debug_impl(lambda* arg, lambda* self, lambda_cont* cont) {
#if __x86_64__ || __i386__
    __asm__("int3");
#endif

    lambda_unref(arg);
    lambda_unref(self);

    lambda_ref(lambda_io_error, 1);
    return lambda_cont_call(lambda_io_error, cont);
}

LAMBDA_INSTANCE(lambda_io_debug_inst, lambda_io_debug_impl, 0, 0,
    .captures = {},
    .userdata = {}
);

lambda* lambda_io_debug = (lambda*)&lambda_io_debug_inst;
`
